// Package importer loads family trees from YAML files into a TreeStore.
// Imports run as background jobs that callers poll by job ID.
package importer

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lineagekit/lineage/internal/storage"
	"github.com/lineagekit/lineage/pkg/types"
)

// ImportResult is the final summary produced by a completed import job.
type ImportResult struct {
	JobID            string        `json:"job_id"`
	FilesFound       int           `json:"files_found"`
	FilesProcessed   int           `json:"files_processed"`
	FilesSkipped     int           `json:"files_skipped"`
	FilesFailed      int           `json:"files_failed"`
	TreesCreated     int           `json:"trees_created"`
	MembersCreated   int           `json:"members_created"`
	EdgesCreated     int           `json:"edges_created"`
	MarriagesCreated int           `json:"marriages_created"`
	TreeIDs          []string      `json:"tree_ids,omitempty"`
	Errors           []string      `json:"errors,omitempty"`
	Duration         time.Duration `json:"duration_ms"`
}

// ImportProgress carries live progress data for a running job.
type ImportProgress struct {
	JobID          string `json:"job_id"`
	Status         string `json:"status"` // "running" | "complete" | "failed"
	FilesFound     int    `json:"files_found"`
	FilesProcessed int    `json:"files_processed"`
	FilesTotal     int    `json:"files_total"`
	CurrentFile    string `json:"current_file,omitempty"`
	Message        string `json:"message,omitempty"`
}

// ImportJob tracks the state of an async import operation.
type ImportJob struct {
	mu       sync.RWMutex
	Progress ImportProgress
	Result   *ImportResult
	Done     chan struct{}
}

func newImportJob(jobID string) *ImportJob {
	return &ImportJob{
		Progress: ImportProgress{
			JobID:  jobID,
			Status: "running",
		},
		Done: make(chan struct{}),
	}
}

// GetProgress returns a snapshot of the current import progress.
func (j *ImportJob) GetProgress() ImportProgress {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.Progress
}

// TreeImporter walks a directory of YAML tree files (or a single file) and
// creates trees, members, edges and marriages in the store.
type TreeImporter struct {
	store storage.TreeStore

	// mu protects jobs.
	mu   sync.RWMutex
	jobs map[string]*ImportJob
}

// NewTreeImporter creates an importer that writes trees to the given store.
func NewTreeImporter(store storage.TreeStore) *TreeImporter {
	return &TreeImporter{
		store: store,
		jobs:  make(map[string]*ImportJob),
	}
}

// StartImport begins an asynchronous import of the file or directory at path.
// It returns a job ID that callers can use with GetJobProgress / GetJobResult.
func (imp *TreeImporter) StartImport(ctx context.Context, path string) (string, error) {
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("cannot access %q: %w", path, err)
	}

	jobID := uuid.New().String()
	job := newImportJob(jobID)

	imp.mu.Lock()
	imp.jobs[jobID] = job
	imp.mu.Unlock()

	go func() {
		result := imp.runImport(ctx, job, path)
		job.mu.Lock()
		job.Result = result
		if len(result.Errors) > 0 && result.FilesProcessed == 0 {
			job.Progress.Status = "failed"
			job.Progress.Message = "Import failed"
		} else {
			job.Progress.Status = "complete"
			job.Progress.Message = fmt.Sprintf("Imported %d trees with %d members from %d files",
				result.TreesCreated, result.MembersCreated, result.FilesProcessed)
		}
		job.mu.Unlock()
		close(job.Done)
	}()

	return jobID, nil
}

// GetJobProgress returns the live progress for a job, or false if unknown.
func (imp *TreeImporter) GetJobProgress(jobID string) (ImportProgress, bool) {
	imp.mu.RLock()
	job, ok := imp.jobs[jobID]
	imp.mu.RUnlock()
	if !ok {
		return ImportProgress{}, false
	}
	return job.GetProgress(), true
}

// GetJobResult returns the final result for a completed job.
// Returns nil if the job is still running or not found.
func (imp *TreeImporter) GetJobResult(jobID string) *ImportResult {
	imp.mu.RLock()
	job, ok := imp.jobs[jobID]
	imp.mu.RUnlock()
	if !ok {
		return nil
	}
	job.mu.RLock()
	defer job.mu.RUnlock()
	return job.Result
}

// runImport is the synchronous import logic executed in a goroutine.
func (imp *TreeImporter) runImport(ctx context.Context, job *ImportJob, path string) *ImportResult {
	start := time.Now()
	result := &ImportResult{JobID: job.Progress.JobID}

	files, err := collectTreeFiles(path)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("walk error: %v", err))
		return result
	}

	result.FilesFound = len(files)
	job.mu.Lock()
	job.Progress.FilesFound = len(files)
	job.Progress.FilesTotal = len(files)
	job.mu.Unlock()

	if len(files) == 0 {
		result.Duration = time.Since(start)
		return result
	}

	base := filepath.Dir(path)
	for i, absPath := range files {
		if ctx.Err() != nil {
			result.Errors = append(result.Errors, "context cancelled")
			break
		}

		rel, _ := filepath.Rel(base, absPath)

		job.mu.Lock()
		job.Progress.FilesProcessed = i
		job.Progress.CurrentFile = rel
		job.mu.Unlock()

		data, err := os.ReadFile(absPath)
		if err != nil {
			log.Printf("import: skip %s: read error: %v", rel, err)
			result.FilesSkipped++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: read error: %v", rel, err))
			continue
		}

		if len(strings.TrimSpace(string(data))) == 0 {
			result.FilesSkipped++
			continue
		}

		tf, err := ParseTreeFile(data)
		if err != nil {
			log.Printf("import: skip %s: parse error: %v", rel, err)
			result.FilesFailed++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: parse error: %v", rel, err))
			continue
		}

		treeID, err := imp.storeTree(ctx, tf, result)
		if err != nil {
			log.Printf("import: failed to store %s: %v", rel, err)
			result.FilesFailed++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: store error: %v", rel, err))
			continue
		}

		result.FilesProcessed++
		result.TreesCreated++
		result.TreeIDs = append(result.TreeIDs, treeID)
	}

	result.Duration = time.Since(start)
	return result
}

// storeTree inserts one parsed tree file. Local member IDs from the file are
// mapped to canonical store IDs; edges and marriages are translated through
// that map.
func (imp *TreeImporter) storeTree(ctx context.Context, tf *TreeFile, result *ImportResult) (string, error) {
	treeID := fmt.Sprintf("tree:%s", uuid.New().String()[:8])
	if err := imp.store.CreateTree(ctx, &types.Tree{ID: treeID, Name: tf.Name}); err != nil {
		return "", err
	}

	idMap := make(map[string]string, len(tf.Members))
	for _, m := range tf.Members {
		id := fmt.Sprintf("mem:%s", uuid.New().String()[:8])
		idMap[m.ID] = id
		name := m.Name
		if name == "" {
			name = m.ID
		}
		if err := imp.store.AddMember(ctx, &types.Member{
			ID: id, TreeID: treeID, Name: name,
		}); err != nil {
			return "", fmt.Errorf("member %s: %w", m.ID, err)
		}
		result.MembersCreated++
	}

	for _, e := range tf.Edges {
		if err := imp.store.AddParentChildEdge(ctx, &types.ParentChildEdge{
			ID:       fmt.Sprintf("edge:%s", uuid.New().String()[:8]),
			TreeID:   treeID,
			ParentID: idMap[e.Parent],
			ChildID:  idMap[e.Child],
			Kind:     types.ParentChildKind(e.Kind),
		}); err != nil {
			return "", fmt.Errorf("edge %s->%s: %w", e.Parent, e.Child, err)
		}
		result.EdgesCreated++
	}

	for _, m := range tf.Marriages {
		if err := imp.store.AddMarriage(ctx, &types.Marriage{
			ID:        fmt.Sprintf("mar:%s", uuid.New().String()[:8]),
			TreeID:    treeID,
			Spouse1ID: idMap[m.Spouse1],
			Spouse2ID: idMap[m.Spouse2],
			Status:    types.MarriageStatus(m.Status),
		}); err != nil {
			return "", fmt.Errorf("marriage %s=%s: %w", m.Spouse1, m.Spouse2, err)
		}
		result.MarriagesCreated++
	}

	return treeID, nil
}

// collectTreeFiles returns the YAML files under path. A single-file path is
// returned as-is; a directory is walked, skipping hidden subdirectories.
func collectTreeFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		if isTreeFile(path) {
			return []string{path}, nil
		}
		return nil, fmt.Errorf("%q is not a YAML file", path)
	}

	var files []string
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && p != path {
				return filepath.SkipDir
			}
			return nil
		}
		if isTreeFile(p) {
			files = append(files, p)
		}
		return nil
	})
	return files, err
}

func isTreeFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}
