package tracking

import (
	"context"
	"errors"
	"testing"
)

func TestUserLifecycle(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()

	created, err := svc.EnsureDefaultAdmin(ctx)
	if err != nil || !created {
		t.Fatalf("ensure admin: created=%v err=%v", created, err)
	}
	if created, _ := svc.EnsureDefaultAdmin(ctx); created {
		t.Error("second EnsureDefaultAdmin should be a no-op")
	}

	root, err := svc.Authenticate(ctx, "admin", "admin")
	if err != nil {
		t.Fatalf("authenticate admin: %v", err)
	}
	rootActor := ActorFor(root)
	if !rootActor.IsAdmin() {
		t.Error("default admin should hold manage_users")
	}

	u, err := svc.CreateUser(ctx, rootActor, UserInput{Username: " olga ", Password: "secret1", Permissions: []string{"add_parts", "add_parts"}})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if u.Username != "olga" || u.Role != RoleUser || !equalStrings(u.Permissions, []string{"add_parts"}) {
		t.Errorf("user = %+v", u)
	}

	if _, err := svc.CreateUser(ctx, rootActor, UserInput{Username: "OLGA2", Password: "123"}); Kind(err) != "validation" {
		t.Errorf("short password err = %v, want validation", err)
	}
	if _, err := svc.CreateUser(ctx, rootActor, UserInput{Username: "olga", Password: "secret1"}); !errors.Is(err, ErrDuplicateName) {
		t.Errorf("duplicate err = %v, want ErrDuplicateName", err)
	}
	if _, err := svc.CreateUser(ctx, rootActor, UserInput{Username: "x", Password: "secret1", Permissions: []string{"fly"}}); Kind(err) != "validation" {
		t.Errorf("bad permission err = %v, want validation", err)
	}

	if _, err := svc.Authenticate(ctx, "olga", "wrong!!"); !errors.Is(err, ErrBadCredentials) {
		t.Errorf("wrong password err = %v, want ErrBadCredentials", err)
	}
	if _, err := svc.Authenticate(ctx, "nobody", "secret1"); Kind(err) != "unauthorized" {
		t.Errorf("unknown user kind = %q, want unauthorized", Kind(err))
	}

	// Updating without a password keeps the old one.
	if _, err := svc.UpdateUser(ctx, rootActor, u.ID, UserInput{Username: "olga", Permissions: []string{"edit_parts"}}); err != nil {
		t.Fatalf("update user: %v", err)
	}
	olga, err := svc.Authenticate(ctx, "olga", "secret1")
	if err != nil {
		t.Fatalf("authenticate after update: %v", err)
	}
	if !ActorFor(olga).Can(PermEditParts) || ActorFor(olga).Can(PermAddParts) {
		t.Errorf("permissions = %v", olga.Permissions)
	}

	if err := svc.DeleteUser(ctx, rootActor, root.ID); !errors.Is(err, ErrPermission) {
		t.Errorf("delete self err = %v, want ErrPermission", err)
	}
	if _, err := svc.UpdateUser(ctx, rootActor, root.ID, UserInput{Username: "admin", Role: RoleUser}); !errors.Is(err, ErrPermission) {
		t.Errorf("self demotion err = %v, want ErrPermission", err)
	}
	if err := svc.DeleteUser(ctx, rootActor, u.ID); err != nil {
		t.Fatalf("delete user: %v", err)
	}
	if _, err := svc.GetUser(ctx, u.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("get deleted err = %v, want ErrNotFound", err)
	}

	page, err := svc.AuditLog(ctx, 1, 50)
	if err != nil {
		t.Fatalf("audit log: %v", err)
	}
	counts := map[string]int{}
	for _, e := range page.Entries {
		counts[e.Action]++
	}
	if counts[ActionLogin] != 2 || counts[ActionUserCreated] != 2 || counts[ActionUserUpdated] != 1 || counts[ActionUserDeleted] != 1 {
		t.Errorf("audit actions = %v", counts)
	}
}
