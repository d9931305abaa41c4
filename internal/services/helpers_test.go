package services

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/monocle-dev/taskforge/db"
	"github.com/monocle-dev/taskforge/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type emitted struct {
	ProjectID uint
	Event     string
	Payload   any
}

type recorder struct {
	mu     sync.Mutex
	events []emitted
}

func (r *recorder) Emit(projectID uint, event string, payload any) {
	r.mu.Lock()
	r.events = append(r.events, emitted{projectID, event, payload})
	r.mu.Unlock()
}

func (r *recorder) all() []emitted {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]emitted(nil), r.events...)
}

func (r *recorder) last(t *testing.T) emitted {
	t.Helper()
	events := r.all()
	if len(events) == 0 {
		t.Fatal("no events emitted")
	}
	return events[len(events)-1]
}

type fixture struct {
	db       *gorm.DB
	events   *recorder
	notifier *Notifier
	projects *ProjectService
	tasks    *TaskService
	users    *UserService
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent), TranslateError: true})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	// one connection so every query sees the same in-memory database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := db.MigrateDatabase(gdb); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return gdb
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gdb := newTestDB(t)
	events := &recorder{}
	notifier := NewNotifier(gdb)
	projects := NewProjectService(gdb, events, notifier)
	return &fixture{
		db:       gdb,
		events:   events,
		notifier: notifier,
		projects: projects,
		tasks:    NewTaskService(gdb, projects, events, notifier),
		users:    NewUserService(gdb),
	}
}

func (f *fixture) user(t *testing.T, name string) *models.User {
	t.Helper()
	u := models.User{Name: name, Email: name + "@example.com", PasswordHash: "x"}
	if err := f.db.Create(&u).Error; err != nil {
		t.Fatalf("create user %s: %v", name, err)
	}
	return &u
}

func (f *fixture) project(t *testing.T, owner *models.User) *models.Project {
	t.Helper()
	p, err := f.projects.Create(context.Background(), owner.ID, ProjectInput{Name: "Launch"})
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	return p
}

func (f *fixture) addMember(t *testing.T, actor *models.User, p *models.Project, u *models.User, role string) {
	t.Helper()
	if _, err := f.projects.AddMember(context.Background(), actor.ID, p.ID, u.Email, role); err != nil {
		t.Fatalf("add member %s: %v", u.Name, err)
	}
}

func (f *fixture) count(t *testing.T, model any, query string, args ...any) int64 {
	t.Helper()
	var n int64
	if err := f.db.Model(model).Where(query, args...).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

// holdCreates blocks inserts into table until n of them are waiting, so
// concurrent callers all pass their read checks before any insert runs.
func holdCreates(t *testing.T, gdb *gorm.DB, table string, n int32) {
	t.Helper()

	var arrived int32
	release := make(chan struct{})
	name := "test:hold_" + table

	err := gdb.Callback().Create().Before("gorm:begin_transaction").Register(name, func(tx *gorm.DB) {
		if tx.Statement.Table != table {
			return
		}
		if atomic.AddInt32(&arrived, 1) == n {
			close(release)
		}
		select {
		case <-release:
		case <-time.After(2 * time.Second):
		}
	})
	if err != nil {
		t.Fatalf("register callback: %v", err)
	}
	t.Cleanup(func() { _ = gdb.Callback().Create().Remove(name) })
}

// runConcurrently calls fn from n goroutines and collects the errors.
func runConcurrently(n int, fn func() error) []error {
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = fn()
		}(i)
	}
	wg.Wait()
	return errs
}
