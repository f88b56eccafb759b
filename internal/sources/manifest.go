package sources

import (
	"encoding/json"
	"fmt"

	"launcher/internal/jsonfile"
	"launcher/internal/logx"
	"launcher/internal/paths"
	"launcher/pkg/appspec"
)

// ReadManifest returns the stored source.json of a source. A missing file
// yields an empty manifest named after the source.
func ReadManifest(layout paths.Layout, src appspec.Source) (appspec.SourceJSON, error) {
	manifest := appspec.SourceJSON{Name: src.Name}
	if _, err := jsonfile.ReadOr(layout.SourceJSONFile(src.Name), &manifest); err != nil {
		return appspec.SourceJSON{}, err
	}
	if manifest.Apps == nil {
		manifest.Apps = []string{}
	}
	return manifest, nil
}

// WriteManifest stores source.json for a source.
func WriteManifest(layout paths.Layout, src appspec.Source, manifest appspec.SourceJSON) error {
	if manifest.Apps == nil {
		manifest.Apps = []string{}
	}
	return jsonfile.Write(layout.SourceJSONFile(src.Name), manifest)
}

// ReadWithdrawn returns the stored withdrawn.json of a source, empty when
// missing.
func ReadWithdrawn(layout paths.Layout, src appspec.Source) (appspec.WithdrawnJSON, error) {
	withdrawn := appspec.WithdrawnJSON{}
	if _, err := jsonfile.ReadOr(layout.WithdrawnJSONFile(src.Name), &withdrawn); err != nil {
		return nil, err
	}
	if withdrawn == nil {
		withdrawn = appspec.WithdrawnJSON{}
	}
	return withdrawn, nil
}

// WriteWithdrawn stores withdrawn.json for a source.
func WriteWithdrawn(layout paths.Layout, src appspec.Source, withdrawn appspec.WithdrawnJSON) error {
	if withdrawn == nil {
		withdrawn = appspec.WithdrawnJSON{}
	}
	return jsonfile.Write(layout.WithdrawnJSONFile(src.Name), withdrawn)
}

// Store writes a freshly downloaded manifest and folds the apps that dropped
// out of it into the withdrawn list. Unreadable old files count as empty.
func Store(layout paths.Layout, src appspec.Source, manifest appspec.SourceJSON, logger logx.Logger) error {
	logger = logx.OrDiscard(logger)
	old, err := ReadManifest(layout, src)
	if err != nil {
		logger.Printf("ignoring unreadable manifest of %s: %v", src.Name, err)
		old = appspec.SourceJSON{}
	}
	oldWithdrawn, err := ReadWithdrawn(layout, src)
	if err != nil {
		logger.Printf("ignoring unreadable withdrawn list of %s: %v", src.Name, err)
		oldWithdrawn = nil
	}

	withdrawn := ComputeWithdrawn(oldWithdrawn, old.Apps, manifest.Apps)
	if err := WriteManifest(layout, src, manifest); err != nil {
		return err
	}
	return WriteWithdrawn(layout, src, withdrawn)
}

// CheckManifestName reports a manifest whose declared name differs from the
// name the source is registered under. The mismatch is not fatal.
func CheckManifestName(src appspec.Source, manifest appspec.SourceJSON) *SourceError {
	if manifest.Name == src.Name {
		return nil
	}
	err := fmt.Errorf("the official name of this source is %q, but it is registered as %q", manifest.Name, src.Name)
	serr := newSourceError(src, err)
	return &serr
}

func decodeManifest(data []byte) (appspec.SourceJSON, error) {
	if err := appspec.ValidateSourceJSON(data); err != nil {
		return appspec.SourceJSON{}, err
	}
	var manifest appspec.SourceJSON
	if err := json.Unmarshal(data, &manifest); err != nil {
		return appspec.SourceJSON{}, fmt.Errorf("decode source.json: %w", err)
	}
	return manifest, nil
}
