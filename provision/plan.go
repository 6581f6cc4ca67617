package provision

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/hashicorp/go-version"
)

const (
	// MinToolchain is the oldest Go release the toolkit builds with.
	MinToolchain = "1.22"
	// EnvDirName holds the isolated module cache and tool binaries.
	EnvDirName     = ".toolkit-env"
	defaultGoProxy = "https://proxy.golang.org,direct"
)

// Directories are created under the project root when missing.
var Directories = []string{"uploads", "outputs", filepath.Join("static", "js")}

// HelperTools are optional external programs used by some conversions.
var HelperTools = []string{"pdftoppm", "gs"}

// SmokePackages must all resolve for the installation to count as usable.
var SmokePackages = []string{
	"github.com/cppla/pdftoolkit/pdfops",
	"github.com/cppla/pdftoolkit/controllers",
	"github.com/cppla/pdftoolkit/client",
	"github.com/pdfcpu/pdfcpu/pkg/api",
	"github.com/gin-gonic/gin",
}

// Options come from the setup command line.
type Options struct {
	Root string
	// SkipEnv installs into the ambient module cache instead of EnvDirName.
	SkipEnv bool
	// Force recreates an existing environment.
	Force bool
	// KeepEnv preserves an existing environment and wins over Force.
	KeepEnv bool
	// MinToolchain overrides the package constant, mostly for tests.
	MinToolchain string
	GoProxy      string
}

// State is shared by the steps of one run.
type State struct {
	Opts   Options
	Runner Runner

	OS               string
	GoBinary         string
	Toolchain        *version.Version
	PackageManagerOK bool
	EnvDir           string
	// Env is passed to every go invocation after provision-env ran.
	Env []string
}

// NewState fills option defaults.
func NewState(opts Options, r Runner) *State {
	if opts.Root == "" {
		opts.Root = "."
	}
	if opts.MinToolchain == "" {
		opts.MinToolchain = MinToolchain
	}
	if opts.GoProxy == "" {
		opts.GoProxy = defaultGoProxy
	}
	if r == nil {
		r = ExecRunner{}
	}
	return &State{Opts: opts, Runner: r, GoBinary: "go"}
}

// DefaultPlan returns the full setup procedure.
func DefaultPlan() *Workflow {
	return &Workflow{Steps: []Step{
		{Name: "detect-os", Run: detectOS},
		{Name: "check-toolchain", Critical: true, Run: checkToolchain},
		{Name: "check-package-manager", Run: checkPackageManager},
		{
			Name:     "install-package-manager",
			Critical: true,
			Skip:     func(st *State) bool { return st.PackageManagerOK },
			Run:      installPackageManager,
		},
		{Name: "create-directories", Critical: true, Run: createDirectories},
		{
			Name:     "provision-env",
			Critical: true,
			Skip:     func(st *State) bool { return st.Opts.SkipEnv },
			Run:      provisionEnv,
		},
		{Name: "install-dependencies", Critical: true, Run: installDependencies},
		{Name: "helper-tools", Run: checkHelperTools},
		{Name: "smoke-check", Critical: true, Run: smokeCheck},
	}}
}

func detectOS(_ context.Context, st *State) (string, error) {
	st.OS = runtime.GOOS
	return runtime.GOOS + "/" + runtime.GOARCH, nil
}

func checkToolchain(ctx context.Context, st *State) (string, error) {
	path, err := st.Runner.LookPath("go")
	if err != nil {
		return "", errors.New("go toolchain not found on PATH; install Go " + st.Opts.MinToolchain + " or newer")
	}
	st.GoBinary = path

	out, err := st.Runner.Run(ctx, st.Opts.Root, nil, path, "env", "GOVERSION")
	if err != nil {
		return "", fmt.Errorf("go env GOVERSION: %w", err)
	}
	have, err := ParseGoVersion(string(out))
	if err != nil {
		return "", err
	}
	want, err := version.NewVersion(st.Opts.MinToolchain)
	if err != nil {
		return "", err
	}
	// release candidates of the minimum count as the minimum
	if have.Core().LessThan(want) {
		return "", fmt.Errorf("go %s found, %s or newer required", have, want)
	}
	st.Toolchain = have
	return "go " + have.String(), nil
}

// ParseGoVersion reads the output of `go env GOVERSION` or `go version`.
func ParseGoVersion(out string) (*version.Version, error) {
	for _, field := range strings.Fields(out) {
		if v, ok := strings.CutPrefix(field, "go"); ok && v != "" && v[0] >= '0' && v[0] <= '9' {
			return version.NewVersion(v)
		}
	}
	return nil, fmt.Errorf("cannot read a Go version from %q", strings.TrimSpace(out))
}

func checkPackageManager(ctx context.Context, st *State) (string, error) {
	cache, proxy, err := goEnv(ctx, st)
	if err != nil {
		return "", err
	}
	if proxy == "" || proxy == "off" {
		return "", fmt.Errorf("module downloads disabled (GOPROXY=%q)", proxy)
	}
	st.PackageManagerOK = true
	return "GOPROXY=" + proxy + " GOMODCACHE=" + cache, nil
}

func installPackageManager(ctx context.Context, st *State) (string, error) {
	if out, err := st.Runner.Run(ctx, st.Opts.Root, st.Env, st.GoBinary, "env", "-w", "GOPROXY="+st.Opts.GoProxy); err != nil {
		return "", commandError("go env -w GOPROXY", out, err)
	}
	return checkPackageManager(ctx, st)
}

func goEnv(ctx context.Context, st *State) (cache, proxy string, err error) {
	out, err := st.Runner.Run(ctx, st.Opts.Root, st.Env, st.GoBinary, "env", "GOMODCACHE", "GOPROXY")
	if err != nil {
		return "", "", commandError("go env", out, err)
	}
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	if len(lines) != 2 {
		return "", "", fmt.Errorf("unexpected go env output %q", strings.TrimSpace(string(out)))
	}
	return strings.TrimSpace(lines[0]), strings.TrimSpace(lines[1]), nil
}

func createDirectories(_ context.Context, st *State) (string, error) {
	for _, dir := range Directories {
		if err := os.MkdirAll(filepath.Join(st.Opts.Root, dir), 0o755); err != nil {
			return "", err
		}
	}
	return strings.Join(Directories, ", "), nil
}

func provisionEnv(_ context.Context, st *State) (string, error) {
	dir := filepath.Join(st.Opts.Root, EnvDirName)
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}

	detail := "created " + EnvDirName
	if _, err := os.Stat(abs); err == nil {
		switch {
		case st.Opts.KeepEnv:
			detail = "kept existing " + EnvDirName
		case st.Opts.Force:
			if err := os.RemoveAll(abs); err != nil {
				return "", err
			}
			detail = "recreated " + EnvDirName
		default:
			detail = "reused " + EnvDirName
		}
	}

	cache, bin := filepath.Join(abs, "modcache"), filepath.Join(abs, "bin")
	for _, d := range []string{cache, bin} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return "", err
		}
	}
	st.EnvDir = abs
	st.Env = []string{"GOMODCACHE=" + cache, "GOBIN=" + bin}
	return detail, nil
}

func installDependencies(ctx context.Context, st *State) (string, error) {
	out, err := st.Runner.Run(ctx, st.Opts.Root, st.Env, st.GoBinary, "mod", "download")
	if err != nil {
		return "", commandError("go mod download", out, err)
	}
	if st.EnvDir == "" {
		return "modules downloaded to the ambient cache", nil
	}
	return "modules downloaded to " + EnvDirName, nil
}

func checkHelperTools(_ context.Context, st *State) (string, error) {
	var found, missing []string
	for _, tool := range HelperTools {
		if _, err := st.Runner.LookPath(tool); err != nil {
			missing = append(missing, tool)
			continue
		}
		found = append(found, tool)
	}
	if len(missing) > 0 {
		return strings.Join(found, ", "), fmt.Errorf("optional tools not found: %s; PDF to image conversion needs pdftoppm", strings.Join(missing, ", "))
	}
	return strings.Join(found, ", "), nil
}

func smokeCheck(ctx context.Context, st *State) (string, error) {
	args := append([]string{"list"}, SmokePackages...)
	out, err := st.Runner.Run(ctx, st.Opts.Root, st.Env, st.GoBinary, args...)
	if err != nil {
		return "", commandError("go list", out, err)
	}
	return fmt.Sprintf("%d packages resolved", len(SmokePackages)), nil
}

func commandError(what string, out []byte, err error) error {
	msg := strings.TrimSpace(string(out))
	if msg == "" {
		return fmt.Errorf("%s: %w", what, err)
	}
	return fmt.Errorf("%s: %w: %s", what, err, msg)
}
