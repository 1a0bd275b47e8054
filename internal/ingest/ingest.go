// Package ingest imports hand-authored story files into a graph store.
package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"storynexus/internal/story"
)

type Store interface {
	EnsureSchema(ctx context.Context) error
	InsertStory(ctx context.Context, gs *story.GameStory) (string, error)
	PatchStory(ctx context.Context, id string, patch story.StoryPatch) error
	InsertNode(ctx context.Context, node *story.StoryNode) (string, error)
	PatchNode(ctx context.Context, id string, patch story.NodePatch) error
}

type Result struct {
	StoriesCreated int
	NodesCreated   int
	LinksResolved  int
	FilesSkipped   int
	StoryIDs       []string
	Errors         []error
}

type Options struct {
	Exclude []string
}

// Run imports every .yaml/.yml story under paths. A file that fails to
// parse or check is recorded in Result.Errors and skipped without writing
// anything.
func Run(ctx context.Context, paths []string, db Store, options Options) (*Result, error) {
	if err := db.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	files, err := walkStoryFiles(paths, options.Exclude)
	if err != nil {
		return nil, fmt.Errorf("walking story files: %w", err)
	}

	result := &Result{}
	for _, path := range files {
		sf, err := parseFile(path)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("parsing %s: %w", path, err))
			result.FilesSkipped++
			continue
		}
		p, err := sf.plan()
		if err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("checking %s: %w", path, err))
			result.FilesSkipped++
			continue
		}
		if err := write(ctx, db, p, result); err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("importing %s: %w", path, err))
		}
	}
	return result, nil
}

// write inserts the story and its nodes, then resolves keys into links and
// parents once every node has an id.
func write(ctx context.Context, db Store, p *plan, result *Result) error {
	storyID, err := db.InsertStory(ctx, p.story)
	if err != nil {
		return fmt.Errorf("inserting story: %w", err)
	}
	result.StoriesCreated++
	result.StoryIDs = append(result.StoryIDs, storyID)

	ids := make(map[string]string, len(p.nodes))
	for i, node := range p.nodes {
		node.StoryID = storyID
		id, err := db.InsertNode(ctx, node)
		if err != nil {
			return fmt.Errorf("inserting node %q: %w", p.keys[i], err)
		}
		node.ID = id
		ids[p.keys[i]] = id
		result.NodesCreated++
	}

	for i, node := range p.nodes {
		var patch story.NodePatch
		if len(p.links[i]) > 0 {
			choices := node.Choices
			for j := range choices {
				if key, ok := p.links[i][choices[j].ID]; ok {
					choices[j].NextNodeID = ids[key]
					result.LinksResolved++
				}
			}
			patch.Choices = &choices
		}
		if p.parents[i] != "" {
			patch.Tree = &story.TreeAddress{ParentNodeID: ids[p.parents[i]]}
		}
		if patch.Choices == nil && patch.Tree == nil {
			continue
		}
		if err := db.PatchNode(ctx, node.ID, patch); err != nil {
			return fmt.Errorf("linking node %q: %w", p.keys[i], err)
		}
	}

	root := ids[p.root]
	if err := db.PatchStory(ctx, storyID, story.StoryPatch{RootNodeID: &root}); err != nil {
		return fmt.Errorf("setting root: %w", err)
	}
	return nil
}

func walkStoryFiles(roots []string, excludes []string) ([]string, error) {
	excluded := make([]string, 0, len(excludes))
	for _, path := range excludes {
		if path == "" {
			continue
		}
		excluded = append(excluded, filepath.Clean(path))
	}

	var files []string
	for _, root := range roots {
		if root == "" {
			continue
		}
		root = filepath.Clean(root)
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() && isExcluded(path, excluded) {
				return filepath.SkipDir
			}
			if d.IsDir() || !isStoryFile(d.Name()) || isExcluded(path, excluded) {
				return nil
			}
			files = append(files, path)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}

func isStoryFile(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasSuffix(lower, ".yaml") || strings.HasSuffix(lower, ".yml")
}

func isExcluded(path string, excludes []string) bool {
	clean := filepath.Clean(path)
	for _, exclude := range excludes {
		if exclude == clean || strings.HasPrefix(clean, exclude+string(os.PathSeparator)) {
			return true
		}
	}
	return false
}
