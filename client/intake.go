package client

import (
	"strings"
	"time"

	"github.com/cppla/pdftoolkit/notify"
)

// Notifier shows a message; *notify.Board implements it.
type Notifier interface {
	Show(message string, kind notify.Kind, duration time.Duration) notify.Record
}

// Batch is a non-empty set of validated candidates. Only an Intake creates one.
type Batch struct {
	files []Candidate
}

// Files returns a copy of the batch contents.
func (b Batch) Files() []Candidate { return append([]Candidate(nil), b.files...) }

// Len reports how many files the batch carries.
func (b Batch) Len() int { return len(b.files) }

// Rejection is a candidate that failed validation.
type Rejection struct {
	Candidate Candidate
	Reasons   []string
}

// Message renders the rejection as "<name>: <reason>, <reason>".
func (r Rejection) Message() string {
	return r.Candidate.Name + ": " + strings.Join(r.Reasons, ", ")
}

// IntakeResult splits the input into accepted and rejected files.
type IntakeResult struct {
	Accepted Batch
	Rejected []Rejection
}

// Intake validates dropped or picked files before they can be submitted.
type Intake struct {
	cfg      Config
	notifier Notifier
}

func NewIntake(cfg Config, n Notifier) *Intake {
	return &Intake{cfg: cfg, notifier: n}
}

// Accept validates files against allowed (empty allows any type). Rejections are shown as
// one warning, one line per file. handler gets the accepted files once, and only when
// there are any.
func (in *Intake) Accept(files []Candidate, allowed []string, handler func(Batch)) IntakeResult {
	return in.deliver(in.partition(files, allowed), handler)
}

// AcceptPaths builds candidates from paths first. Unreadable paths are rejected with the
// error text as the reason.
func (in *Intake) AcceptPaths(paths []string, allowed []string, handler func(Batch)) IntakeResult {
	var (
		files      []Candidate
		unreadable []Rejection
	)
	for _, p := range paths {
		c, err := CandidateFromPath(p)
		if err != nil {
			unreadable = append(unreadable, Rejection{Candidate: Candidate{Name: p, Path: p}, Reasons: []string{err.Error()}})
			continue
		}
		files = append(files, c)
	}
	res := in.partition(files, allowed)
	res.Rejected = append(unreadable, res.Rejected...)
	return in.deliver(res, handler)
}

func (in *Intake) partition(files []Candidate, allowed []string) IntakeResult {
	var res IntakeResult
	for _, c := range files {
		v := Validate(c, allowed, in.cfg.Limits.MaxUploadBytes)
		if v.Valid {
			res.Accepted.files = append(res.Accepted.files, c)
			continue
		}
		res.Rejected = append(res.Rejected, Rejection{Candidate: c, Reasons: v.Errors})
	}
	return res
}

func (in *Intake) deliver(res IntakeResult, handler func(Batch)) IntakeResult {
	if len(res.Rejected) > 0 && in.notifier != nil {
		lines := make([]string, len(res.Rejected))
		for i, r := range res.Rejected {
			lines[i] = r.Message()
		}
		in.notifier.Show(strings.Join(lines, "\n"), notify.Warning, in.cfg.AlertDuration)
	}
	if res.Accepted.Len() > 0 && handler != nil {
		handler(res.Accepted)
	}
	return res
}
