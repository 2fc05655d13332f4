package integration

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/examenapp/examen-api/internal/database"
	"github.com/examenapp/examen-api/internal/models"
	"github.com/examenapp/examen-api/internal/store"
)

func TestTaskCRUD(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	user := createTestUser(t, db, "tasks1@example.com")

	due := time.Now().Add(48 * time.Hour).UTC().Truncate(time.Second)
	task, err := store.CreateTask(ctx, db, store.CreateTaskRequest{
		Title:       "Grade midterms",
		Description: "Section A and B",
		UserID:      user.ID,
		DueDate:     &due,
	})
	if err != nil {
		t.Fatalf("Create task: %v", err)
	}
	if task.Status != models.TaskStatusPending {
		t.Errorf("Expected default status pending, got %s", task.Status)
	}
	if task.Priority != models.TaskPriorityMedium {
		t.Errorf("Expected default priority medium, got %s", task.Priority)
	}
	if task.DueDate == nil || !task.DueDate.Equal(due) {
		t.Errorf("Expected due date %s, got %v", due, task.DueDate)
	}

	fetched, err := store.GetTask(ctx, db, task.ID)
	if err != nil {
		t.Fatalf("Get task: %v", err)
	}
	if fetched.User == nil || fetched.User.Email != user.Email {
		t.Errorf("Expected owner summary for %s, got %+v", user.Email, fetched.User)
	}

	status := models.TaskStatusCompleted
	priority := models.TaskPriorityHigh
	updated, err := store.UpdateTask(ctx, db, task.ID, store.UpdateTaskRequest{
		Status:   &status,
		Priority: &priority,
	})
	if err != nil {
		t.Fatalf("Update task: %v", err)
	}
	if updated.Status != status || updated.Priority != priority {
		t.Errorf("Expected %s/%s, got %s/%s", status, priority, updated.Status, updated.Priority)
	}
	if updated.Title != task.Title {
		t.Errorf("Untouched field changed: %q", updated.Title)
	}

	if err := store.DeleteTask(ctx, db, task.ID); err != nil {
		t.Fatalf("Delete task: %v", err)
	}
	if _, err := store.GetTask(ctx, db, task.ID); !errors.Is(err, database.ErrTaskNotFound) {
		t.Errorf("Expected task not found after delete, got: %v", err)
	}
}

func TestListTasksFilters(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	alice := createTestUser(t, db, "tasks2@example.com")
	bob := createTestUser(t, db, "tasks3@example.com")

	seed := []store.CreateTaskRequest{
		{Title: "Write exam questions", UserID: alice.ID, Priority: models.TaskPriorityHigh},
		{Title: "Book exam hall", UserID: alice.ID, Status: models.TaskStatusCompleted},
		{Title: "Print answer sheets", UserID: bob.ID},
	}
	for _, req := range seed {
		if _, err := store.CreateTask(ctx, db, req); err != nil {
			t.Fatalf("Create task %q: %v", req.Title, err)
		}
	}

	all, err := store.ListTasks(ctx, db, store.TaskFilter{}, 1, 10)
	if err != nil {
		t.Fatalf("List all tasks: %v", err)
	}
	if all.Total != 3 {
		t.Errorf("Expected 3 tasks, got %d", all.Total)
	}

	aliceOnly, err := store.ListTasks(ctx, db, store.TaskFilter{UserID: alice.ID}, 1, 10)
	if err != nil {
		t.Fatalf("List alice tasks: %v", err)
	}
	if aliceOnly.Total != 2 {
		t.Errorf("Expected 2 alice tasks, got %d", aliceOnly.Total)
	}

	pending, err := store.ListTasks(ctx, db, store.TaskFilter{Status: models.TaskStatusPending}, 1, 10)
	if err != nil {
		t.Fatalf("List pending tasks: %v", err)
	}
	if pending.Total != 2 {
		t.Errorf("Expected 2 pending tasks, got %d", pending.Total)
	}

	high, err := store.ListTasks(ctx, db, store.TaskFilter{Priority: models.TaskPriorityHigh}, 1, 10)
	if err != nil {
		t.Fatalf("List high priority tasks: %v", err)
	}
	if high.Total != 1 {
		t.Errorf("Expected 1 high priority task, got %d", high.Total)
	}

	matched, err := store.ListTasks(ctx, db, store.TaskFilter{Search: "exam"}, 1, 10)
	if err != nil {
		t.Fatalf("Search tasks: %v", err)
	}
	if matched.Total != 2 {
		t.Errorf("Expected 2 search matches, got %d", matched.Total)
	}
}

func TestDeviceTokens(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	alice := createTestUser(t, db, "devices1@example.com")
	bob := createTestUser(t, db, "devices2@example.com")

	if _, err := store.RegisterDeviceToken(ctx, db, alice.ID, "token-a", "android"); err != nil {
		t.Fatalf("Register token: %v", err)
	}
	if _, err := store.RegisterDeviceToken(ctx, db, alice.ID, "token-b", "ios"); err != nil {
		t.Fatalf("Register token: %v", err)
	}

	tokens, err := store.ListDeviceTokens(ctx, db, alice.ID)
	if err != nil {
		t.Fatalf("List tokens: %v", err)
	}
	if len(tokens) != 2 {
		t.Fatalf("Expected 2 tokens, got %d", len(tokens))
	}

	// Re-registering an existing token moves it to the new owner.
	if _, err := store.RegisterDeviceToken(ctx, db, bob.ID, "token-a", "android"); err != nil {
		t.Fatalf("Re-register token: %v", err)
	}

	aliceTokens, err := store.ListDeviceTokens(ctx, db, alice.ID)
	if err != nil {
		t.Fatalf("List tokens: %v", err)
	}
	if len(aliceTokens) != 1 || aliceTokens[0] != "token-b" {
		t.Errorf("Expected alice to keep only token-b, got %v", aliceTokens)
	}

	bobTokens, err := store.ListDeviceTokens(ctx, db, bob.ID)
	if err != nil {
		t.Fatalf("List tokens: %v", err)
	}
	if len(bobTokens) != 1 || bobTokens[0] != "token-a" {
		t.Errorf("Expected bob to own token-a, got %v", bobTokens)
	}

	if err := store.DeleteDeviceToken(ctx, db, "token-b"); err != nil {
		t.Fatalf("Delete token: %v", err)
	}
	remaining, err := store.ListDeviceTokens(ctx, db, alice.ID)
	if err != nil {
		t.Fatalf("List tokens: %v", err)
	}
	if len(remaining) != 0 {
		t.Errorf("Expected no tokens after delete, got %v", remaining)
	}
}
