package prepare

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/mattn/go-isatty"
	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/forge/internal/core/ports"
	"go.trai.ch/zerr"
)

// ConflictResolver decides what to do when freshly declared outputs already
// exist on disk before any build has run. It is driven by injected streams
// so the prompt loop is testable without a real terminal.
type ConflictResolver struct {
	// In and Out carry the interactive prompt. They default to the
	// process streams when nil.
	In  io.Reader
	Out io.Writer

	// DeleteByDefault deletes conflicting outputs without prompting.
	DeleteByDefault bool

	// IsTerminal reports whether an interactive prompt is possible.
	// Defaults to a tty check on stdin that also treats a CI harness as
	// non-interactive.
	IsTerminal func() bool

	log      ports.Logger
	deleteFn func(domain.AssetID) error
}

// NewConflictResolver creates a resolver that deletes through deleteFn.
func NewConflictResolver(log ports.Logger, deleteFn func(domain.AssetID) error) *ConflictResolver {
	return &ConflictResolver{
		In:         os.Stdin,
		Out:        os.Stdout,
		IsTerminal: stdinIsTerminal,
		log:        log,
		deleteFn:   deleteFn,
	}
}

// stdinIsTerminal reports whether stdin is an interactive terminal. A CI
// environment is never interactive, whatever the tty says.
func stdinIsTerminal() bool {
	if os.Getenv("CI") != "" {
		return false
	}
	fd := os.Stdin.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// Resolve handles a non-empty set of declared outputs that already exist as
// ordinary files. Outside an interactive terminal the conflict is fatal:
// files are never silently deleted or silently kept.
func (r *ConflictResolver) Resolve(conflicts []domain.AssetID) error {
	sorted := make([]domain.AssetID, len(conflicts))
	copy(sorted, conflicts)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].String() < sorted[j].String() })

	if r.DeleteByDefault {
		if err := r.deleteAll(sorted); err != nil {
			return err
		}
		r.log.Info(fmt.Sprintf("deleted %d declared outputs that already existed", len(sorted)))
		return nil
	}

	if !r.IsTerminal() {
		return unexpectedOutputs(sorted)
	}

	return r.prompt(sorted)
}

// prompt loops until the user picks a recognized option. The loop has no
// iteration limit; a closed input stream counts as aborting.
func (r *ConflictResolver) prompt(conflicts []domain.AssetID) error {
	scanner := bufio.NewScanner(r.In)

	for {
		fmt.Fprintf(r.Out, "Found %d declared outputs that already exist on disk.\n", len(conflicts))
		fmt.Fprint(r.Out, "Delete these files? (d)elete, (c)ancel, (l)ist: ")

		if !scanner.Scan() {
			return unexpectedOutputs(conflicts)
		}

		switch strings.ToLower(strings.TrimSpace(scanner.Text())) {
		case "d":
			if err := r.deleteAll(conflicts); err != nil {
				return err
			}
			r.log.Info(fmt.Sprintf("deleted %d declared outputs that already existed", len(conflicts)))
			return nil
		case "c":
			return unexpectedOutputs(conflicts)
		case "l":
			for _, id := range conflicts {
				fmt.Fprintln(r.Out, id.String())
			}
		default:
			fmt.Fprintln(r.Out, "Unrecognized option.")
		}
	}
}

func (r *ConflictResolver) deleteAll(conflicts []domain.AssetID) error {
	for _, id := range conflicts {
		if err := r.deleteFn(id); err != nil {
			return zerr.With(zerr.Wrap(err, "failed to delete conflicting output"), "asset", id.String())
		}
	}
	return nil
}

func unexpectedOutputs(conflicts []domain.AssetID) error {
	return zerr.With(domain.ErrUnexpectedOutputs, "assets", joinIDs(conflicts))
}

func joinIDs(ids []domain.AssetID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = id.String()
	}
	return strings.Join(parts, ", ")
}
