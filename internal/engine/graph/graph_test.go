package graph_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/forge/internal/core/ports/mocks"
	"go.trai.ch/forge/internal/engine/graph"
	"go.uber.org/mock/gomock"
)

func testActions() []domain.BuildAction {
	return []domain.BuildAction{
		{
			Builder:     "codegen",
			Package:     "app",
			GenerateFor: []string{"lib/**"},
			Outputs:     map[string][]string{".dart": {".g.dart"}},
			Options:     map[string]any{"header": true},
		},
	}
}

func testPackages(t *testing.T) *domain.PackageGraph {
	t.Helper()
	pkgs, err := domain.NewPackageGraph([]*domain.PackageInfo{
		{Name: "app", Dir: ".", Kind: domain.KindRoot},
		{Name: "dep", Dir: "deps/dep", Kind: domain.KindDependency},
	})
	require.NoError(t, err)
	return pkgs
}

func anyDigestReader(t *testing.T) *mocks.MockAssetReader {
	t.Helper()
	ctrl := gomock.NewController(t)
	reader := mocks.NewMockAssetReader(ctrl)
	reader.EXPECT().Digest(gomock.Any()).Return(domain.DigestString("content"), nil).AnyTimes()
	return reader
}

func TestBuild_DeclaresOutputs(t *testing.T) {
	inputs := domain.NewIDSet(
		domain.NewAssetID("app", "lib/a.dart"),
		domain.NewAssetID("app", "lib/b.txt"),
	)

	g, err := graph.Build(context.Background(), testActions(), inputs, domain.NewIDSet(), testPackages(t), anyDigestReader(t))
	require.NoError(t, err)

	outputs := g.Outputs()
	require.Len(t, outputs, 1)
	require.Equal(t, "app|lib/a.g.dart", outputs[0].String())

	node, ok := g.Get(outputs[0])
	require.True(t, ok)
	gen, ok := node.(*graph.GeneratedNode)
	require.True(t, ok)
	require.False(t, gen.WasOutput, "declared output must not be marked as emitted")
	require.Equal(t, "app|lib/a.dart", gen.Input.String())
}

func TestBuild_HashesSources(t *testing.T) {
	id := domain.NewAssetID("app", "lib/a.dart")

	g, err := graph.Build(context.Background(), testActions(), domain.NewIDSet(id), domain.NewIDSet(), testPackages(t), anyDigestReader(t))
	require.NoError(t, err)

	node, ok := g.Get(id)
	require.True(t, ok)
	require.NotNil(t, node.LastDigest())
	require.Equal(t, domain.DigestString("content"), *node.LastDigest())
}

func TestBuild_OptionsNodes(t *testing.T) {
	actions := testActions()

	g, err := graph.Build(context.Background(), actions, domain.NewIDSet(), domain.NewIDSet(), testPackages(t), anyDigestReader(t))
	require.NoError(t, err)

	optID := domain.OptionsNodeID(actions[0], 0)
	node, ok := g.Get(optID)
	require.True(t, ok)
	require.IsType(t, &graph.OptionsNode{}, node)
	require.NotNil(t, node.LastDigest())
	require.Equal(t, actions[0].OptionsDigest(), *node.LastDigest())
}

func TestBuild_UnknownPackage(t *testing.T) {
	inputs := domain.NewIDSet(domain.NewAssetID("ghost", "lib/a.dart"))

	_, err := graph.Build(context.Background(), testActions(), inputs, domain.NewIDSet(), testPackages(t), anyDigestReader(t))
	require.ErrorIs(t, err, domain.ErrUnknownPackage)
}

func TestUpdateAndInvalidate_Added(t *testing.T) {
	g, err := graph.Build(context.Background(), testActions(), domain.NewIDSet(), domain.NewIDSet(), testPackages(t), anyDigestReader(t))
	require.NoError(t, err)

	added := domain.NewAssetID("app", "lib/new.dart")
	changes := domain.ChangeSet{added: domain.ChangeAdded}

	err = g.UpdateAndInvalidate(testActions(), changes, "app", func(domain.AssetID) error { return nil }, anyDigestReader(t))
	require.NoError(t, err)

	require.True(t, g.Contains(added))
	require.True(t, g.Contains(domain.NewAssetID("app", "lib/new.g.dart")), "added input must declare its outputs")
}

func TestUpdateAndInvalidate_RemovedSourceDeletesEmittedOutputs(t *testing.T) {
	input := domain.NewAssetID("app", "lib/a.dart")
	g, err := graph.Build(context.Background(), testActions(), domain.NewIDSet(input), domain.NewIDSet(), testPackages(t), anyDigestReader(t))
	require.NoError(t, err)

	outID := domain.NewAssetID("app", "lib/a.g.dart")
	node, ok := g.Get(outID)
	require.True(t, ok)
	node.(*graph.GeneratedNode).WasOutput = true

	var deleted []string
	changes := domain.ChangeSet{input: domain.ChangeRemoved}
	err = g.UpdateAndInvalidate(testActions(), changes, "app", func(id domain.AssetID) error {
		deleted = append(deleted, id.String())
		return nil
	}, anyDigestReader(t))
	require.NoError(t, err)

	require.Equal(t, []string{"app|lib/a.g.dart"}, deleted)
	require.False(t, g.Contains(input))
	require.False(t, g.Contains(outID))
}

func TestUpdateAndInvalidate_RemovedSourceSkipsNeverEmittedOutputs(t *testing.T) {
	input := domain.NewAssetID("app", "lib/a.dart")
	g, err := graph.Build(context.Background(), testActions(), domain.NewIDSet(input), domain.NewIDSet(), testPackages(t), anyDigestReader(t))
	require.NoError(t, err)

	var deleted int
	changes := domain.ChangeSet{input: domain.ChangeRemoved}
	err = g.UpdateAndInvalidate(testActions(), changes, "app", func(domain.AssetID) error {
		deleted++
		return nil
	}, anyDigestReader(t))
	require.NoError(t, err)

	require.Zero(t, deleted, "never-emitted outputs must not be deleted")
	require.False(t, g.Contains(input))
}

func TestUpdateAndInvalidate_ModifiedRefreshesDigestAndInvalidatesOutputs(t *testing.T) {
	input := domain.NewAssetID("app", "lib/a.dart")
	g, err := graph.Build(context.Background(), testActions(), domain.NewIDSet(input), domain.NewIDSet(), testPackages(t), anyDigestReader(t))
	require.NoError(t, err)

	outID := domain.NewAssetID("app", "lib/a.g.dart")
	emitted := domain.DigestString("emitted")
	g.Get(outID)
	node, _ := g.Get(outID)
	node.(*graph.GeneratedNode).Digest = &emitted

	ctrl := gomock.NewController(t)
	reader := mocks.NewMockAssetReader(ctrl)
	newDigest := domain.DigestString("edited")
	reader.EXPECT().Digest(input).Return(newDigest, nil)

	changes := domain.ChangeSet{input: domain.ChangeModified}
	err = g.UpdateAndInvalidate(testActions(), changes, "app", func(domain.AssetID) error { return nil }, reader)
	require.NoError(t, err)

	srcNode, _ := g.Get(input)
	require.Equal(t, newDigest, *srcNode.LastDigest())

	outNode, _ := g.Get(outID)
	require.Nil(t, outNode.LastDigest(), "derived output digest must be invalidated")
}
