package services

import (
	"context"
	"testing"
	"time"

	"github.com/monocle-dev/taskforge/internal/apperr"
	"github.com/monocle-dev/taskforge/internal/models"
	"github.com/monocle-dev/taskforge/internal/realtime"
)

func TestCreateProjectMakesOwnerAdminMember(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, "owner")

	p := f.project(t, owner)

	if p.OwnerID != owner.ID || p.Owner == nil || p.Owner.Email != owner.Email {
		t.Fatalf("owner not populated: %+v", p)
	}
	if len(p.Memberships) != 1 || p.Memberships[0].UserID != owner.ID || p.Memberships[0].Role != models.MemberRoleAdmin {
		t.Fatalf("unexpected memberships %+v", p.Memberships)
	}
	if p.Memberships[0].User == nil {
		t.Fatal("membership user not populated")
	}
}

func TestCreateProjectRequiresName(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, "owner")

	_, err := f.projects.Create(context.Background(), owner.ID, ProjectInput{Name: "  "})
	if !apperr.Is(err, apperr.CodeInvalid) {
		t.Fatalf("expected invalid, got %v", err)
	}
}

func TestListProjectsOwnedOrMember(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice, bob := f.user(t, "alice"), f.user(t, "bob")

	mine := f.project(t, alice)
	shared := f.project(t, bob)
	f.project(t, bob)
	f.addMember(t, bob, shared, alice, models.MemberRoleMember)

	projects, err := f.projects.List(ctx, alice.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(projects) != 2 {
		t.Fatalf("expected 2 projects, got %d", len(projects))
	}
	// newest first
	if projects[0].ID != shared.ID || projects[1].ID != mine.ID {
		t.Fatalf("unexpected order %d, %d", projects[0].ID, projects[1].ID)
	}
}

func TestAddMemberTwiceIsRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner, m := f.user(t, "owner"), f.user(t, "m")
	p := f.project(t, owner)

	f.addMember(t, owner, p, m, "")

	_, err := f.projects.AddMember(ctx, owner.ID, p.ID, m.Email, models.MemberRoleAdmin)
	if !apperr.Is(err, apperr.CodeInvalid) {
		t.Fatalf("expected invalid on duplicate, got %v", err)
	}

	if n := f.count(t, &models.ProjectMembership{}, "project_id = ? AND user_id = ?", p.ID, m.ID); n != 1 {
		t.Fatalf("expected exactly one membership, got %d", n)
	}

	// the owner is already a member too
	_, err = f.projects.AddMember(ctx, owner.ID, p.ID, owner.Email, "")
	if !apperr.Is(err, apperr.CodeInvalid) {
		t.Fatalf("expected invalid for owner, got %v", err)
	}
}

func TestAddMemberValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner, m, outsider := f.user(t, "owner"), f.user(t, "m"), f.user(t, "outsider")
	p := f.project(t, owner)
	f.addMember(t, owner, p, m, models.MemberRoleMember)

	if _, err := f.projects.AddMember(ctx, owner.ID, p.ID, "nobody@example.com", ""); !apperr.Is(err, apperr.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := f.projects.AddMember(ctx, owner.ID, p.ID, outsider.Email, "viewer"); !apperr.Is(err, apperr.CodeInvalid) {
		t.Fatalf("expected invalid role, got %v", err)
	}
	if _, err := f.projects.AddMember(ctx, m.ID, p.ID, outsider.Email, ""); !apperr.Is(err, apperr.CodeForbidden) {
		t.Fatalf("expected plain member to be denied, got %v", err)
	}
}

func TestAddMemberEmitsAndNotifies(t *testing.T) {
	f := newFixture(t)
	owner, m := f.user(t, "owner"), f.user(t, "m")
	p := f.project(t, owner)

	f.addMember(t, owner, p, m, models.MemberRoleMember)

	ev := f.events.last(t)
	if ev.Event != realtime.EventProjectUpdated || ev.ProjectID != p.ID {
		t.Fatalf("unexpected event %+v", ev)
	}
	if n := f.count(t, &models.Notification{}, "user_id = ? AND type = ?", m.ID, models.NotificationProjectInvited); n != 1 {
		t.Fatalf("expected invitation notification, got %d", n)
	}
}

func TestUpdateProjectRequiresOwnerOrAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner, admin, member, outsider := f.user(t, "owner"), f.user(t, "admin"), f.user(t, "member"), f.user(t, "outsider")
	p := f.project(t, owner)
	f.addMember(t, owner, p, admin, models.MemberRoleAdmin)
	f.addMember(t, owner, p, member, models.MemberRoleMember)
	before := len(f.events.all())

	name := "Renamed"
	for _, u := range []*models.User{outsider, member} {
		if _, err := f.projects.Update(ctx, u.ID, p.ID, ProjectUpdate{Name: &name}); !apperr.Is(err, apperr.CodeForbidden) {
			t.Fatalf("expected %s to be denied, got %v", u.Name, err)
		}
	}
	if len(f.events.all()) != before {
		t.Fatal("denied update emitted an event")
	}

	updated, err := f.projects.Update(ctx, admin.ID, p.ID, ProjectUpdate{Name: &name})
	if err != nil {
		t.Fatalf("admin update: %v", err)
	}
	if updated.Name != name {
		t.Fatalf("name not updated: %s", updated.Name)
	}

	ev := f.events.last(t)
	if ev.Event != realtime.EventProjectUpdated || ev.Payload.(*models.Project).Name != name {
		t.Fatalf("unexpected event %+v", ev)
	}

	if _, err := f.projects.Update(ctx, owner.ID, p.ID, ProjectUpdate{}); !apperr.Is(err, apperr.CodeInvalid) {
		t.Fatalf("expected empty update to be invalid, got %v", err)
	}
	if _, err := f.projects.Update(ctx, owner.ID, 999, ProjectUpdate{Name: &name}); !apperr.Is(err, apperr.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestGetProjectRequiresMembership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner, outsider := f.user(t, "owner"), f.user(t, "outsider")
	p := f.project(t, owner)

	if _, err := f.projects.Get(ctx, outsider.ID, p.ID); !apperr.Is(err, apperr.CodeForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if err := f.projects.CanJoin(ctx, outsider.ID, p.ID); !apperr.Is(err, apperr.CodeForbidden) {
		t.Fatalf("expected join to be refused, got %v", err)
	}
	if err := f.projects.CanJoin(ctx, owner.ID, p.ID); err != nil {
		t.Fatalf("owner join refused: %v", err)
	}
}

func TestDeleteProjectCascades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner, admin, member := f.user(t, "owner"), f.user(t, "admin"), f.user(t, "member")
	p := f.project(t, owner)
	f.addMember(t, owner, p, admin, models.MemberRoleAdmin)
	f.addMember(t, owner, p, member, models.MemberRoleMember)

	for i := 0; i < 3; i++ {
		if _, err := f.tasks.Create(ctx, member.ID, p.ID, TaskInput{Title: "t", AssigneeID: &admin.ID}); err != nil {
			t.Fatalf("create task: %v", err)
		}
	}
	other := f.project(t, owner)
	if _, err := f.tasks.Create(ctx, owner.ID, other.ID, TaskInput{Title: "keep"}); err != nil {
		t.Fatalf("create task: %v", err)
	}

	for _, u := range []*models.User{member, admin} {
		if err := f.projects.Delete(ctx, u.ID, p.ID); !apperr.Is(err, apperr.CodeForbidden) {
			t.Fatalf("expected %s to be denied, got %v", u.Name, err)
		}
	}

	if err := f.projects.Delete(ctx, owner.ID, p.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if n := f.count(t, &models.Task{}, "project_id = ?", p.ID); n != 0 {
		t.Fatalf("expected tasks removed, %d left", n)
	}
	if n := f.count(t, &models.ProjectMembership{}, "project_id = ?", p.ID); n != 0 {
		t.Fatalf("expected memberships removed, %d left", n)
	}
	if n := f.count(t, &models.Notification{}, "project_id = ?", p.ID); n != 0 {
		t.Fatalf("expected notifications removed, %d left", n)
	}
	if n := f.count(t, &models.Task{}, "project_id = ?", other.ID); n != 1 {
		t.Fatalf("unrelated project lost tasks: %d", n)
	}

	for _, u := range []*models.User{owner, admin, member} {
		projects, err := f.projects.List(ctx, u.ID)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		for _, lp := range projects {
			if lp.ID == p.ID {
				t.Fatalf("%s still references deleted project", u.Name)
			}
		}
	}

	if _, err := f.projects.Get(ctx, owner.ID, p.ID); !apperr.Is(err, apperr.CodeNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}

func TestRemoveMember(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner, admin, member := f.user(t, "owner"), f.user(t, "admin"), f.user(t, "member")
	p := f.project(t, owner)
	f.addMember(t, owner, p, admin, models.MemberRoleAdmin)
	f.addMember(t, owner, p, member, models.MemberRoleMember)

	if _, err := f.projects.RemoveMember(ctx, admin.ID, p.ID, owner.ID); !apperr.Is(err, apperr.CodeInvalid) {
		t.Fatalf("expected owner removal to be invalid, got %v", err)
	}
	if _, err := f.projects.RemoveMember(ctx, member.ID, p.ID, admin.ID); !apperr.Is(err, apperr.CodeForbidden) {
		t.Fatalf("expected plain member to be denied, got %v", err)
	}

	updated, err := f.projects.RemoveMember(ctx, admin.ID, p.ID, member.ID)
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, ok := updated.Membership(member.ID); ok {
		t.Fatal("member still listed")
	}

	if _, err := f.projects.RemoveMember(ctx, admin.ID, p.ID, member.ID); !apperr.Is(err, apperr.CodeNotFound) {
		t.Fatalf("expected not found for repeated removal, got %v", err)
	}
	if _, err := f.projects.Get(ctx, member.ID, p.ID); !apperr.Is(err, apperr.CodeForbidden) {
		t.Fatalf("removed member kept access: %v", err)
	}
}

func TestConcurrentAddMemberReportsDuplicate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner, m := f.user(t, "owner"), f.user(t, "m")
	p := f.project(t, owner)

	holdCreates(t, f.db, "project_memberships", 2)

	errs := runConcurrently(2, func() error {
		_, err := f.projects.AddMember(ctx, owner.ID, p.ID, m.Email, "")
		return err
	})

	succeeded, rejected := 0, 0
	for i, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case apperr.Is(err, apperr.CodeInvalid):
			rejected++
		default:
			t.Fatalf("call %d: status %d: %v", i, apperr.HTTPStatus(err), err)
		}
	}
	if succeeded != 1 || rejected != 1 {
		t.Fatalf("expected one success and one rejection, got %d and %d", succeeded, rejected)
	}
	if n := f.count(t, &models.ProjectMembership{}, "project_id = ? AND user_id = ?", p.ID, m.ID); n != 1 {
		t.Fatalf("expected exactly one membership, got %d", n)
	}
}

func TestAddMemberChecksAccessBeforeInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner, outsider := f.user(t, "owner"), f.user(t, "outsider")
	p := f.project(t, owner)

	if _, err := f.projects.AddMember(ctx, outsider.ID, p.ID, "", "viewer"); !apperr.Is(err, apperr.CodeForbidden) {
		t.Fatalf("expected forbidden before validation, got %v", err)
	}
	if _, err := f.projects.AddMember(ctx, outsider.ID, 999, "", "viewer"); !apperr.Is(err, apperr.CodeNotFound) {
		t.Fatalf("expected not found before validation, got %v", err)
	}
}

func TestClearProjectEndDate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user(t, "owner")

	end := time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)
	p, err := f.projects.Create(ctx, owner.ID, ProjectInput{Name: "Launch", EndDate: &end})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if p.EndDate == nil {
		t.Fatal("end date not stored")
	}

	updated, err := f.projects.Update(ctx, owner.ID, p.ID, ProjectUpdate{ClearEndDate: true})
	if err != nil {
		t.Fatalf("clear: %v", err)
	}
	if updated.EndDate != nil {
		t.Fatalf("expected no end date, got %v", updated.EndDate)
	}
}
