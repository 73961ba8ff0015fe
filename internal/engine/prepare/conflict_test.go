package prepare_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/forge/internal/engine/prepare"
)

type deleteRecorder struct {
	deleted []domain.AssetID
}

func (r *deleteRecorder) delete(id domain.AssetID) error {
	r.deleted = append(r.deleted, id)
	return nil
}

func conflictIDs() []domain.AssetID {
	return []domain.AssetID{
		domain.NewAssetID("app", "lib/b.copy.txt"),
		domain.NewAssetID("app", "lib/a.copy.txt"),
	}
}

func scriptedResolver(t *testing.T, input string, rec *deleteRecorder) (*prepare.ConflictResolver, *bytes.Buffer) {
	t.Helper()
	r := prepare.NewConflictResolver(quietLogger(t), rec.delete)
	out := &bytes.Buffer{}
	r.In = strings.NewReader(input)
	r.Out = out
	r.IsTerminal = func() bool { return true }
	return r, out
}

func TestResolveDeleteByDefault(t *testing.T) {
	rec := &deleteRecorder{}
	r := prepare.NewConflictResolver(quietLogger(t), rec.delete)
	r.DeleteByDefault = true

	require.NoError(t, r.Resolve(conflictIDs()))

	// Deletions happen in sorted order.
	require.Equal(t, []domain.AssetID{
		domain.NewAssetID("app", "lib/a.copy.txt"),
		domain.NewAssetID("app", "lib/b.copy.txt"),
	}, rec.deleted)
}

func TestResolveNonInteractiveIsFatal(t *testing.T) {
	rec := &deleteRecorder{}
	r := prepare.NewConflictResolver(quietLogger(t), rec.delete)
	r.IsTerminal = func() bool { return false }

	err := r.Resolve(conflictIDs())
	require.ErrorIs(t, err, domain.ErrUnexpectedOutputs)
	require.Empty(t, rec.deleted)
}

func TestResolvePromptDelete(t *testing.T) {
	rec := &deleteRecorder{}
	r, _ := scriptedResolver(t, "d\n", rec)

	require.NoError(t, r.Resolve(conflictIDs()))
	require.Len(t, rec.deleted, 2)
}

func TestResolvePromptCancel(t *testing.T) {
	rec := &deleteRecorder{}
	r, _ := scriptedResolver(t, "c\n", rec)

	err := r.Resolve(conflictIDs())
	require.ErrorIs(t, err, domain.ErrUnexpectedOutputs)
	require.Empty(t, rec.deleted)
}

func TestResolvePromptListThenDelete(t *testing.T) {
	rec := &deleteRecorder{}
	r, out := scriptedResolver(t, "l\nd\n", rec)

	require.NoError(t, r.Resolve(conflictIDs()))
	require.Contains(t, out.String(), "app|lib/a.copy.txt")
	require.Contains(t, out.String(), "app|lib/b.copy.txt")
	require.Len(t, rec.deleted, 2)
}

func TestResolvePromptReasksOnUnrecognizedInput(t *testing.T) {
	rec := &deleteRecorder{}
	r, out := scriptedResolver(t, "x\nd\n", rec)

	require.NoError(t, r.Resolve(conflictIDs()))
	require.Contains(t, out.String(), "Unrecognized option.")
	require.Len(t, rec.deleted, 2)
}

func TestResolvePromptEOFAborts(t *testing.T) {
	rec := &deleteRecorder{}
	r, _ := scriptedResolver(t, "", rec)

	err := r.Resolve(conflictIDs())
	require.ErrorIs(t, err, domain.ErrUnexpectedOutputs)
	require.Empty(t, rec.deleted)
}
