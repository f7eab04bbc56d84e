package importer_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lineagekit/lineage/internal/importer"
	"github.com/lineagekit/lineage/internal/storage/sqlite"
)

const smithTree = `
name: Smith Family
members:
  - id: alice
    name: Alice Smith
  - id: bob
    name: Bob Smith
  - id: carol
    name: Carol Smith
marriages:
  - spouse1: alice
    spouse2: bob
edges:
  - parent: alice
    child: carol
  - parent: bob
    child: carol
    kind: adopted
`

// TestTreeImport runs a full integration import against a synthetic directory
// of YAML tree files created in a temp dir.
func TestTreeImport(t *testing.T) {
	dir := t.TempDir()

	jonesTree := []byte(`
name: Jones Family
members:
  - id: dan
    name: Dan Jones
  - id: eve
    name: Eve Jones
edges:
  - parent: dan
    child: eve
`)
	if err := os.WriteFile(filepath.Join(dir, "smith.yaml"), []byte(smithTree), 0o600); err != nil {
		t.Fatalf("failed to create smith.yaml: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "jones.yml"), jonesTree, 0o600); err != nil {
		t.Fatalf("failed to create jones.yml: %v", err)
	}
	// A non-YAML file should be ignored entirely.
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("not a tree"), 0o600); err != nil {
		t.Fatalf("failed to create notes.txt: %v", err)
	}

	store, err := sqlite.NewTreeStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer func() { _ = store.Close() }()

	imp := importer.NewTreeImporter(store)
	ctx := context.Background()

	jobID, err := imp.StartImport(ctx, dir)
	if err != nil {
		t.Fatalf("StartImport failed: %v", err)
	}

	progress := waitForJob(t, imp, jobID)

	result := imp.GetJobResult(jobID)
	if result == nil {
		t.Fatal("no result returned")
	}

	if progress.Status != "complete" {
		t.Errorf("expected status 'complete', got %q", progress.Status)
	}
	if result.FilesFound != 2 {
		t.Errorf("expected 2 files found, got %d", result.FilesFound)
	}
	if result.TreesCreated != 2 {
		t.Errorf("expected 2 trees created, got %d", result.TreesCreated)
	}
	if result.MembersCreated != 5 {
		t.Errorf("expected 5 members created, got %d", result.MembersCreated)
	}
	if result.EdgesCreated != 3 {
		t.Errorf("expected 3 edges created, got %d", result.EdgesCreated)
	}
	if result.MarriagesCreated != 1 {
		t.Errorf("expected 1 marriage created, got %d", result.MarriagesCreated)
	}

	// The trees must actually be in the store with their edges intact.
	trees, err := store.ListTrees(ctx)
	if err != nil {
		t.Fatalf("ListTrees failed: %v", err)
	}
	if len(trees) != 2 {
		t.Fatalf("expected 2 trees in store, got %d", len(trees))
	}
	for _, treeID := range result.TreeIDs {
		snap, err := store.LoadSnapshot(ctx, treeID)
		if err != nil {
			t.Errorf("LoadSnapshot(%s) failed: %v", treeID, err)
			continue
		}
		if len(snap.Members) == 0 {
			t.Errorf("tree %s has no members", treeID)
		}
	}
}

// TestTreeImport_SingleFile imports one file given directly by path.
func TestTreeImport_SingleFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "smith.yaml")
	if err := os.WriteFile(path, []byte(smithTree), 0o600); err != nil {
		t.Fatalf("failed to create smith.yaml: %v", err)
	}

	store, err := sqlite.NewTreeStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer func() { _ = store.Close() }()

	imp := importer.NewTreeImporter(store)

	jobID, err := imp.StartImport(context.Background(), path)
	if err != nil {
		t.Fatalf("StartImport failed: %v", err)
	}
	progress := waitForJob(t, imp, jobID)

	if progress.Status != "complete" {
		t.Errorf("expected status 'complete', got %q", progress.Status)
	}
	result := imp.GetJobResult(jobID)
	if result.TreesCreated != 1 {
		t.Errorf("expected 1 tree created, got %d", result.TreesCreated)
	}
}

// TestTreeImport_InvalidFileFailsJob verifies that a directory containing
// only a broken file yields a failed job with an error recorded.
func TestTreeImport_InvalidFileFailsJob(t *testing.T) {
	dir := t.TempDir()
	bad := []byte(`
name: Broken
members:
  - id: a
edges:
  - parent: a
    child: ghost
`)
	if err := os.WriteFile(filepath.Join(dir, "broken.yaml"), bad, 0o600); err != nil {
		t.Fatalf("failed to create broken.yaml: %v", err)
	}

	store, err := sqlite.NewTreeStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer func() { _ = store.Close() }()

	imp := importer.NewTreeImporter(store)

	jobID, err := imp.StartImport(context.Background(), dir)
	if err != nil {
		t.Fatalf("StartImport failed: %v", err)
	}
	progress := waitForJob(t, imp, jobID)

	if progress.Status != "failed" {
		t.Errorf("expected status 'failed', got %q", progress.Status)
	}
	result := imp.GetJobResult(jobID)
	if result.FilesFailed != 1 {
		t.Errorf("expected 1 failed file, got %d", result.FilesFailed)
	}
	if len(result.Errors) == 0 {
		t.Error("expected errors to be recorded")
	}
}

func TestStartImport_MissingPath(t *testing.T) {
	store, err := sqlite.NewTreeStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer func() { _ = store.Close() }()

	imp := importer.NewTreeImporter(store)
	if _, err := imp.StartImport(context.Background(), "/nonexistent/path"); err == nil {
		t.Error("expected error for missing path")
	}
}

// TestParseTreeFile exercises the lower-level parser directly.
func TestParseTreeFile(t *testing.T) {
	tf, err := importer.ParseTreeFile([]byte(smithTree))
	if err != nil {
		t.Fatalf("ParseTreeFile failed: %v", err)
	}

	if tf.Name != "Smith Family" {
		t.Errorf("expected name 'Smith Family', got %q", tf.Name)
	}
	if len(tf.Members) != 3 {
		t.Errorf("expected 3 members, got %d", len(tf.Members))
	}
	// Omitted kind and status default to biological and married.
	if tf.Edges[0].Kind != "biological" {
		t.Errorf("expected default kind biological, got %q", tf.Edges[0].Kind)
	}
	if tf.Edges[1].Kind != "adopted" {
		t.Errorf("expected explicit kind adopted, got %q", tf.Edges[1].Kind)
	}
	if tf.Marriages[0].Status != "married" {
		t.Errorf("expected default status married, got %q", tf.Marriages[0].Status)
	}
}

func TestParseTreeFile_Rejections(t *testing.T) {
	cases := map[string]string{
		"missing name": `
members:
  - id: a
`,
		"no members": `
name: Empty
`,
		"duplicate member": `
name: Dup
members:
  - id: a
  - id: a
`,
		"bad edge kind": `
name: Bad
members:
  - id: a
  - id: b
edges:
  - parent: a
    child: b
    kind: imaginary
`,
		"self marriage": `
name: Self
members:
  - id: a
marriages:
  - spouse1: a
    spouse2: a
`,
		"undeclared spouse": `
name: Ghost
members:
  - id: a
marriages:
  - spouse1: a
    spouse2: ghost
`,
	}

	for name, doc := range cases {
		if _, err := importer.ParseTreeFile([]byte(doc)); err == nil {
			t.Errorf("%s: expected error, got nil", name)
		}
	}
}

// waitForJob polls until the job leaves the running state (max 30s).
func waitForJob(t *testing.T, imp *importer.TreeImporter, jobID string) importer.ImportProgress {
	t.Helper()
	deadline := time.Now().Add(30 * time.Second)
	var progress importer.ImportProgress
	for time.Now().Before(deadline) {
		var ok bool
		progress, ok = imp.GetJobProgress(jobID)
		if !ok {
			t.Fatal("job not found")
		}
		if progress.Status == "complete" || progress.Status == "failed" {
			return progress
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatal("job did not finish in time")
	return progress
}
