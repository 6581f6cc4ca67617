package provision

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/hashicorp/go-version"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRunner answers commands from a table keyed by "name arg arg".
type fakeRunner struct {
	paths   map[string]string
	replies map[string]reply
	calls   []string
	envs    [][]string
}

type reply struct {
	out string
	err error
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{
		paths: map[string]string{"go": "/usr/local/go/bin/go", "pdftoppm": "/usr/bin/pdftoppm", "gs": "/usr/bin/gs"},
		replies: map[string]reply{
			"go env GOVERSION":          {out: "go1.24.2\n"},
			"go env GOMODCACHE GOPROXY": {out: "/root/go/pkg/mod\nhttps://proxy.golang.org,direct\n"},
		},
	}
}

func (f *fakeRunner) LookPath(name string) (string, error) {
	if p, ok := f.paths[name]; ok {
		return p, nil
	}
	return "", errors.New("executable file not found in $PATH")
}

func (f *fakeRunner) Run(_ context.Context, _ string, env []string, name string, args ...string) ([]byte, error) {
	key := strings.Join(append([]string{filepath.Base(name)}, args...), " ")
	f.calls = append(f.calls, key)
	f.envs = append(f.envs, env)
	if key == "go list "+strings.Join(SmokePackages, " ") || strings.HasPrefix(key, "go mod download") {
		if r, ok := f.replies[key]; ok {
			return []byte(r.out), r.err
		}
		return nil, nil
	}
	r, ok := f.replies[key]
	if !ok {
		return nil, errors.New("unexpected command: " + key)
	}
	return []byte(r.out), r.err
}

func statuses(rep Report) map[string]Status {
	out := map[string]Status{}
	for _, r := range rep.Results {
		out[r.Name] = r.Status
	}
	return out
}

func TestDefaultPlanHappyPath(t *testing.T) {
	root := t.TempDir()
	r := newFakeRunner()
	st := NewState(Options{Root: root}, r)

	rep := DefaultPlan().Run(context.Background(), st)
	require.True(t, rep.OK(), "%+v", rep.Results)
	assert.Equal(t, 0, rep.ExitCode())
	assert.Len(t, rep.Results, 9)

	s := statuses(rep)
	assert.Equal(t, StatusSkipped, s["install-package-manager"])
	assert.Equal(t, StatusOK, s["provision-env"])
	assert.Equal(t, StatusOK, s["smoke-check"])

	for _, d := range Directories {
		assert.DirExists(t, filepath.Join(root, d))
	}
	assert.DirExists(t, filepath.Join(root, EnvDirName, "modcache"))
	assert.Equal(t, "1.24.2", st.Toolchain.String())

	// dependencies land in the isolated cache
	for i, call := range r.calls {
		if call == "go mod download" {
			assert.Contains(t, r.envs[i], "GOMODCACHE="+filepath.Join(st.EnvDir, "modcache"))
		}
	}
}

func TestSkipEnvUsesAmbientCache(t *testing.T) {
	r := newFakeRunner()
	st := NewState(Options{Root: t.TempDir(), SkipEnv: true}, r)
	rep := DefaultPlan().Run(context.Background(), st)
	require.True(t, rep.OK())
	assert.Equal(t, StatusSkipped, statuses(rep)["provision-env"])
	assert.Empty(t, st.Env)
	assert.NoDirExists(t, filepath.Join(st.Opts.Root, EnvDirName))
}

func TestProvisionEnvForceAndKeep(t *testing.T) {
	root := t.TempDir()
	marker := filepath.Join(root, EnvDirName, "marker")
	require.NoError(t, os.MkdirAll(filepath.Dir(marker), 0o755))

	write := func() { require.NoError(t, os.WriteFile(marker, []byte("x"), 0o644)) }

	write()
	detail, err := provisionEnv(context.Background(), NewState(Options{Root: root}, newFakeRunner()))
	require.NoError(t, err)
	assert.Equal(t, "reused "+EnvDirName, detail)
	assert.FileExists(t, marker)

	detail, err = provisionEnv(context.Background(), NewState(Options{Root: root, Force: true, KeepEnv: true}, newFakeRunner()))
	require.NoError(t, err)
	assert.Equal(t, "kept existing "+EnvDirName, detail)
	assert.FileExists(t, marker)

	detail, err = provisionEnv(context.Background(), NewState(Options{Root: root, Force: true}, newFakeRunner()))
	require.NoError(t, err)
	assert.Equal(t, "recreated "+EnvDirName, detail)
	assert.NoFileExists(t, marker)
}

func TestMissingToolchainAborts(t *testing.T) {
	r := newFakeRunner()
	delete(r.paths, "go")
	rep := DefaultPlan().Run(context.Background(), NewState(Options{Root: t.TempDir()}, r))

	assert.Equal(t, 1, rep.ExitCode())
	assert.Equal(t, "check-toolchain", rep.Aborted)
	assert.Len(t, rep.Results, 2)
}

func TestOldToolchainAborts(t *testing.T) {
	r := newFakeRunner()
	r.replies["go env GOVERSION"] = reply{out: "go1.21.9\n"}
	rep := DefaultPlan().Run(context.Background(), NewState(Options{Root: t.TempDir()}, r))
	require.Equal(t, "check-toolchain", rep.Aborted)
	assert.Contains(t, rep.Results[1].Err.Error(), "1.22")
}

func TestPackageManagerInstallFailureStopsBeforeDirectories(t *testing.T) {
	root := t.TempDir()
	r := newFakeRunner()
	r.replies["go env GOMODCACHE GOPROXY"] = reply{err: errors.New("exit status 1")}
	r.replies["go env -w GOPROXY="+defaultGoProxy] = reply{out: "permission denied", err: errors.New("exit status 1")}

	rep := DefaultPlan().Run(context.Background(), NewState(Options{Root: root}, r))

	assert.Equal(t, 1, rep.ExitCode())
	assert.Equal(t, "install-package-manager", rep.Aborted)
	s := statuses(rep)
	assert.Equal(t, StatusWarning, s["check-package-manager"])
	assert.Equal(t, StatusFailed, s["install-package-manager"])
	assert.NotContains(t, s, "create-directories")
	assert.NoDirExists(t, filepath.Join(root, "uploads"))
}

func TestPackageManagerRecovered(t *testing.T) {
	r := newFakeRunner()
	r.replies["go env GOMODCACHE GOPROXY"] = reply{out: "/root/go/pkg/mod\noff\n"}
	r.replies["go env -w GOPROXY="+defaultGoProxy] = reply{}

	st := NewState(Options{Root: t.TempDir()}, r)
	// the re-check sees the fixed proxy
	steps := DefaultPlan().Steps
	_, err := steps[2].Run(context.Background(), st)
	require.Error(t, err)
	r.replies["go env GOMODCACHE GOPROXY"] = reply{out: "/root/go/pkg/mod\nhttps://proxy.golang.org,direct\n"}
	_, err = steps[3].Run(context.Background(), st)
	require.NoError(t, err)
	assert.True(t, st.PackageManagerOK)
}

func TestMissingHelperToolsOnlyWarn(t *testing.T) {
	r := newFakeRunner()
	delete(r.paths, "gs")
	delete(r.paths, "pdftoppm")
	rep := DefaultPlan().Run(context.Background(), NewState(Options{Root: t.TempDir()}, r))

	require.True(t, rep.OK())
	warnings := rep.Warnings()
	require.Len(t, warnings, 1)
	assert.Equal(t, "helper-tools", warnings[0].Name)
	assert.Contains(t, warnings[0].Err.Error(), "pdftoppm, gs")
}

func TestSmokeCheckFailure(t *testing.T) {
	r := newFakeRunner()
	r.replies["go list "+strings.Join(SmokePackages, " ")] = reply{
		out: "no required module provides package github.com/pdfcpu/pdfcpu/pkg/api",
		err: errors.New("exit status 1"),
	}
	rep := DefaultPlan().Run(context.Background(), NewState(Options{Root: t.TempDir()}, r))
	assert.Equal(t, "smoke-check", rep.Aborted)
	last := rep.Results[len(rep.Results)-1]
	assert.Contains(t, last.Err.Error(), "pdfcpu")
}

func TestCancelledContextFailsCurrentStep(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rep := DefaultPlan().Run(ctx, NewState(Options{Root: t.TempDir()}, newFakeRunner()))
	// detect-os is non-critical, check-toolchain aborts
	assert.Equal(t, "check-toolchain", rep.Aborted)
}

func TestParseGoVersion(t *testing.T) {
	for in, want := range map[string]string{
		"go1.24.2":                        "1.24.2",
		"go version go1.22.0 linux/amd64": "1.22.0",
		"go1.23rc1 X:nocoverageredesign":  "1.23.0-rc1",
	} {
		v, err := ParseGoVersion(in)
		require.NoError(t, err, in)
		assert.True(t, v.Equal(version.Must(version.NewVersion(want))), "%s parsed as %s", in, v)
	}
	_, err := ParseGoVersion("devel +abc")
	assert.Error(t, err)
}

func TestPrinter(t *testing.T) {
	color.NoColor = true
	var out bytes.Buffer
	p := NewPrinter(&out)
	w := DefaultPlan()
	w.Observer = p.Step
	rep := w.Run(context.Background(), NewState(Options{Root: t.TempDir()}, newFakeRunner()))
	p.Summary(rep)

	text := out.String()
	assert.Contains(t, text, "✓ check-toolchain")
	assert.Contains(t, text, "- install-package-manager")
	assert.Contains(t, text, "Setup completed successfully")
}
