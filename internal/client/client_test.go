package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/matryer/is"

	"todolist/internal/httpapi"
	"todolist/internal/model"
	"todolist/internal/repository"
	"todolist/internal/service"
	"todolist/internal/store"
	"todolist/internal/validation"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	is := is.New(t)
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := repository.NewDB(repository.DriverSQLite, fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	is.NoErr(err)
	sqlDB, err := db.DB()
	is.NoErr(err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	svc := service.NewTodoService(repository.NewTodoRepository(db), validation.New())
	srv := httptest.NewServer(httpapi.NewRouter(svc, log.New(io.Discard, "", 0)))
	t.Cleanup(srv.Close)
	return New(srv.URL, WithHTTPClient(srv.Client()))
}

func TestClientRoundTrip(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	c := newTestClient(t)

	is.NoErr(c.Health(ctx))

	due := time.Date(2026, 10, 25, 0, 0, 0, 0, time.UTC)
	created, err := c.Create(ctx, model.Draft{Title: "Plan the trip", Priority: model.PriorityMedium.Ptr(), DueAt: &due})
	is.NoErr(err)
	is.True(created.ID != 0)
	is.True(created.DueAt.Equal(due))

	got, err := c.Get(ctx, created.ID)
	is.NoErr(err)
	is.Equal(got.Title, "Plan the trip")

	updated, err := c.Update(ctx, created.ID, model.Patch{DueAt: model.Null[time.Time]()})
	is.NoErr(err)
	is.True(updated.DueAt == nil)
	is.Equal(*updated.Priority, model.PriorityMedium) // untouched fields survive

	done, err := c.SetCompleted(ctx, created.ID, true)
	is.NoErr(err)
	is.True(done.CompletedAt != nil)

	stats, err := c.Stats(ctx)
	is.NoErr(err)
	is.Equal(stats.Completed, int64(1))

	is.NoErr(c.Delete(ctx, created.ID))
	_, err = c.Get(ctx, created.ID)
	is.True(errors.Is(err, model.ErrNotFound))
}

func TestClientErrors(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	c := newTestClient(t)

	_, err := c.Create(ctx, model.Draft{Title: strings.Repeat("x", 201)})
	var errs validation.Errors
	is.True(errors.As(err, &errs))
	is.Equal(len(errs["title"]), 1)

	err = c.Delete(ctx, 99)
	is.True(errors.Is(err, model.ErrNotFound))

	f := model.DefaultFilters()
	f.SortField = "color"
	_, err = c.List(ctx, f)
	var se *StatusError
	is.True(errors.As(err, &se))
	is.Equal(se.Code, http.StatusBadRequest)
	is.True(!IsTemporary(err))
}

func TestStatusErrorTemporary(t *testing.T) {
	is := is.New(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := New(srv.URL).Stats(context.Background())
	is.True(IsTemporary(err))
}

func TestStoreOverClient(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	c := newTestClient(t)

	for _, title := range []string{"A", "B", "C"} {
		_, err := c.Create(ctx, model.Draft{Title: title})
		is.NoErr(err)
	}

	s := store.New(c, store.WithValidator(validation.New()))
	is.NoErr(s.Load(ctx, model.DefaultFilters()))
	is.Equal(s.Len(), 3)

	ids := model.IDs(s.Todos())
	outcome, err := s.ReorderPersisted(ctx, ids[0], ids[2])
	is.NoErr(err)
	is.Equal(outcome, store.Applied)

	remote, err := c.List(ctx, model.DefaultFilters())
	is.NoErr(err)
	is.Equal(model.IDs(remote), []uint{ids[1], ids[2], ids[0]})

	toggled, err := s.ToggleCompletePersisted(ctx, ids[1])
	is.NoErr(err)
	is.True(toggled.CompletedAt != nil)

	is.NoErr(s.Delete(ctx, ids[2]))
	is.Equal(s.Len(), 2)
	is.True(errors.Is(s.Delete(ctx, ids[2]), model.ErrNotFound))
}
