package domain

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// BuildAction is one configured phase of the build pipeline: a builder
// applied to one package with an opaque options blob. Actions form a fixed,
// ordered list; the phase index is part of the options-node identifier.
type BuildAction struct {
	// Builder is the registered name of the builder running this phase.
	Builder string

	// Package is the name of the package the builder runs on.
	Package string

	// HideOutput hides this phase's outputs from downstream visibility.
	// Every action whose output is not hidden must belong to the root package.
	HideOutput bool

	// GenerateFor restricts which inputs of the package the builder sees.
	GenerateFor []string

	// Outputs maps an input extension to the extensions of the files the
	// builder declares for it (e.g. ".dart" -> [".g.dart"]).
	Outputs map[string][]string

	// Options is the builder configuration blob.
	Options map[string]any
}

// OptionsNodeID returns the deterministic identifier of the configuration
// node for the given phase index.
func OptionsNodeID(a BuildAction, phase int) AssetID {
	path := ForgeDirName + "/" + EntrypointDirName + "/phase_" + strconv.Itoa(phase) + ".options"
	return NewAssetID(a.Package, path)
}

// OptionsDigest computes the content digest of the action's options blob.
// Keys are visited in sorted order so the digest is deterministic.
func (a BuildAction) OptionsDigest() Digest {
	keys := make([]string, 0, len(a.Options))
	for k := range a.Options {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var builder strings.Builder
	for _, k := range keys {
		builder.WriteString(k)
		builder.WriteString(":")
		// fmt prints map values with sorted keys, keeping nested maps deterministic.
		builder.WriteString(fmt.Sprintf("%v", a.Options[k]))
		builder.WriteString(";")
	}
	return DigestString(builder.String())
}

// ActionsFingerprint computes a digest over the entire ordered action list.
// A cached graph is only trusted if its recorded fingerprint matches the
// fingerprint of the currently configured actions. Options blobs are
// deliberately excluded: an options change invalidates through the phase's
// options node, not by discarding the whole graph.
func ActionsFingerprint(actions []BuildAction) Digest {
	hasher := xxhash.New()

	for i, a := range actions {
		_, _ = hasher.WriteString(strconv.Itoa(i))
		_, _ = hasher.Write([]byte{0})
		_, _ = hasher.WriteString(a.Builder)
		_, _ = hasher.Write([]byte{0})
		_, _ = hasher.WriteString(a.Package)
		_, _ = hasher.Write([]byte{0})
		_, _ = hasher.WriteString(strconv.FormatBool(a.HideOutput))
		_, _ = hasher.Write([]byte{0})

		for _, pattern := range a.GenerateFor {
			_, _ = hasher.WriteString(pattern)
			_, _ = hasher.Write([]byte{0})
		}
		_, _ = hasher.Write([]byte{0})

		exts := make([]string, 0, len(a.Outputs))
		for ext := range a.Outputs {
			exts = append(exts, ext)
		}
		sort.Strings(exts)
		for _, ext := range exts {
			_, _ = hasher.WriteString(ext)
			_, _ = hasher.WriteString(">")
			_, _ = hasher.WriteString(strings.Join(a.Outputs[ext], ","))
			_, _ = hasher.Write([]byte{0})
		}
		_, _ = hasher.Write([]byte{0})
	}

	return NewDigest(hasher.Sum64())
}
