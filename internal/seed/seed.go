// Package seed loads the demo todos.
package seed

import (
	"context"
	_ "embed"
	"fmt"
	"log"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"todolist/internal/model"
)

//go:embed todos.yaml
var defaultData []byte

// Item is one todo of the seed file. Durations are offsets from the seeding time.
type Item struct {
	Title        string         `yaml:"title"`
	Description  string         `yaml:"description"`
	Priority     *int           `yaml:"priority"`
	DueIn        *time.Duration `yaml:"due_in"`
	CompletedAgo *time.Duration `yaml:"completed_ago"`
}

type File struct {
	Todos []Item `yaml:"todos"`
}

// Repository is the part of the todo repository seeding needs.
type Repository interface {
	ExistsByTitle(ctx context.Context, title string) (bool, error)
	Create(ctx context.Context, todo *model.Todo) error
}

// Parse decodes a seed file and checks every item.
func Parse(data []byte) (File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return File{}, fmt.Errorf("parse seed: %w", err)
	}
	for i, item := range f.Todos {
		if strings.TrimSpace(item.Title) == "" {
			return File{}, fmt.Errorf("parse seed: item %d has no title", i)
		}
		if p := item.Priority; p != nil && (*p < int(model.PriorityUrgent) || *p > int(model.PriorityLow)) {
			return File{}, fmt.Errorf("parse seed: %q has priority %d outside 0-3", item.Title, *p)
		}
	}
	return f, nil
}

// Default returns the embedded demo data.
func Default() File {
	f, err := Parse(defaultData)
	if err != nil {
		panic(err)
	}
	return f
}

// Todo builds the record for item relative to now.
func (item Item) Todo(now time.Time) model.Todo {
	todo := model.Todo{Title: strings.TrimSpace(item.Title)}
	if d := strings.TrimSpace(item.Description); d != "" {
		todo.Description = &d
	}
	if item.Priority != nil {
		todo.Priority = model.Priority(*item.Priority).Ptr()
	}
	if item.DueIn != nil {
		due := now.Add(*item.DueIn)
		todo.DueAt = &due
	}
	if item.CompletedAgo != nil {
		done := now.Add(-*item.CompletedAgo)
		todo.CompletedAt = &done
	}
	return todo
}

// Run creates every item whose title is not stored yet and returns how many were created.
func Run(ctx context.Context, repo Repository, f File, now time.Time) (int, error) {
	created := 0
	for _, item := range f.Todos {
		todo := item.Todo(now.UTC())
		exists, err := repo.ExistsByTitle(ctx, todo.Title)
		if err != nil {
			return created, fmt.Errorf("seed %q: %w", todo.Title, err)
		}
		if exists {
			continue
		}
		if err := repo.Create(ctx, &todo); err != nil {
			return created, fmt.Errorf("seed %q: %w", todo.Title, err)
		}
		created++
	}
	log.Printf("[info] seeded %d todos (%d skipped)", created, len(f.Todos)-created)
	return created, nil
}
