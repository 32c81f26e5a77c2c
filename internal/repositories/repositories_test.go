package repositories_test

import (
	"fmt"
	"testing"
	"time"

	"taskmanager/internal/database"
	"taskmanager/internal/models"
	"taskmanager/internal/repositories"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type repoSet struct {
	users repositories.UserRepository
	tasks repositories.TaskRepository
}

func newSQLiteRepos(t *testing.T) repoSet {
	db, err := database.Open("sqlite", database.SQLiteMemoryDSN(uuid.NewString()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	return gormRepos(db)
}

func gormRepos(db *gorm.DB) repoSet {
	return repoSet{
		users: repositories.NewGORMUserRepository(db),
		tasks: repositories.NewGORMTaskRepository(db),
	}
}

func newMemoryRepos(t *testing.T) repoSet {
	return repoSet{
		users: repositories.NewMemoryUserRepository(),
		tasks: repositories.NewMemoryTaskRepository(),
	}
}

func TestRepositories(t *testing.T) {
	impls := map[string]func(t *testing.T) repoSet{
		"gorm-sqlite": newSQLiteRepos,
		"memory":      newMemoryRepos,
	}
	for name, factory := range impls {
		t.Run(name, func(t *testing.T) {
			runRepositorySuite(t, factory)
		})
	}
}

func runRepositorySuite(t *testing.T, factory func(t *testing.T) repoSet) {
	t.Run("UserLifecycle", func(t *testing.T) { testUserLifecycle(t, factory(t)) })
	t.Run("UserTokens", func(t *testing.T) { testUserTokens(t, factory(t)) })
	t.Run("UserAvatar", func(t *testing.T) { testUserAvatar(t, factory(t)) })
	t.Run("TaskOwnership", func(t *testing.T) { testTaskOwnership(t, factory(t)) })
	t.Run("TaskListing", func(t *testing.T) { testTaskListing(t, factory(t)) })
	t.Run("TaskPagingIsStable", func(t *testing.T) { testTaskPagingIsStable(t, factory(t)) })
	t.Run("TaskDeleteByOwner", func(t *testing.T) { testTaskDeleteByOwner(t, factory(t)) })
}

func createUser(t *testing.T, repo repositories.UserRepository, email string) *models.User {
	t.Helper()
	user := &models.User{Name: "Test", Email: email, Password: "hash"}
	require.NoError(t, repo.Create(user))
	require.NotEmpty(t, user.ID)
	return user
}

func testUserLifecycle(t *testing.T, repos repoSet) {
	user := createUser(t, repos.users, "a@example.com")

	byID, err := repos.users.GetByID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", byID.Email)

	byEmail, err := repos.users.GetByEmail("a@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)

	_, err = repos.users.GetByEmail("missing@example.com")
	assert.ErrorIs(t, err, repositories.ErrNotFound)

	// Duplicate email
	err = repos.users.Create(&models.User{Name: "Other", Email: "a@example.com", Password: "hash"})
	assert.ErrorIs(t, err, repositories.ErrDuplicate)

	other := createUser(t, repos.users, "b@example.com")
	other.Email = "a@example.com"
	assert.ErrorIs(t, repos.users.Update(other), repositories.ErrDuplicate)

	byID.Name = "Renamed"
	byID.Age = 30
	require.NoError(t, repos.users.Update(byID))
	reloaded, err := repos.users.GetByID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", reloaded.Name)
	assert.Equal(t, 30, reloaded.Age)

	require.NoError(t, repos.users.Delete(user.ID))
	_, err = repos.users.GetByID(user.ID)
	assert.ErrorIs(t, err, repositories.ErrNotFound)
	assert.ErrorIs(t, repos.users.Delete(user.ID), repositories.ErrNotFound)
}

func testUserTokens(t *testing.T, repos repoSet) {
	user := createUser(t, repos.users, "tokens@example.com")
	other := createUser(t, repos.users, "other@example.com")

	require.NoError(t, repos.users.AddToken(user.ID, "t1"))
	require.NoError(t, repos.users.AddToken(user.ID, "t2"))
	require.NoError(t, repos.users.AddToken(other.ID, "t3"))

	got, err := repos.users.GetByToken(user.ID, "t1")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	// A token of another user does not resolve.
	_, err = repos.users.GetByToken(user.ID, "t3")
	assert.ErrorIs(t, err, repositories.ErrNotFound)

	require.NoError(t, repos.users.RemoveToken(user.ID, "t1"))
	_, err = repos.users.GetByToken(user.ID, "t1")
	assert.ErrorIs(t, err, repositories.ErrNotFound)
	_, err = repos.users.GetByToken(user.ID, "t2")
	assert.NoError(t, err)

	require.NoError(t, repos.users.RemoveAllTokens(user.ID))
	_, err = repos.users.GetByToken(user.ID, "t2")
	assert.ErrorIs(t, err, repositories.ErrNotFound)
	_, err = repos.users.GetByToken(other.ID, "t3")
	assert.NoError(t, err)

	// Deleting the user removes its sessions.
	require.NoError(t, repos.users.Delete(other.ID))
	_, err = repos.users.GetByToken(other.ID, "t3")
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}

func testUserAvatar(t *testing.T, repos repoSet) {
	user := createUser(t, repos.users, "avatar@example.com")
	require.NoError(t, repos.users.AddToken(user.ID, "tok"))

	require.NoError(t, repos.users.SetAvatar(user.ID, []byte{1, 2, 3}))
	got, err := repos.users.GetByID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, got.Avatar)
	assert.True(t, got.HasAvatar())

	// Profile updates leave the avatar alone.
	got.Name = "Still has avatar"
	require.NoError(t, repos.users.Update(got))
	got, err = repos.users.GetByID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, got.Avatar)

	require.NoError(t, repos.users.SetAvatar(user.ID, nil))
	got, err = repos.users.GetByID(user.ID)
	require.NoError(t, err)
	assert.False(t, got.HasAvatar())

	assert.ErrorIs(t, repos.users.SetAvatar(uuid.NewString(), []byte{1}), repositories.ErrNotFound)
}

func testTaskOwnership(t *testing.T, repos repoSet) {
	task := &models.Task{Description: "buy milk", OwnerID: "owner-a"}
	require.NoError(t, repos.tasks.Create(task))
	require.NotEmpty(t, task.ID)

	got, err := repos.tasks.GetByID("owner-a", task.ID)
	require.NoError(t, err)
	assert.Equal(t, "buy milk", got.Description)
	assert.False(t, got.Completed)

	_, err = repos.tasks.GetByID("owner-b", task.ID)
	assert.ErrorIs(t, err, repositories.ErrNotFound)

	foreign := *got
	foreign.OwnerID = "owner-b"
	foreign.Description = "hijacked"
	assert.ErrorIs(t, repos.tasks.Update(&foreign), repositories.ErrNotFound)

	got.Completed = true
	require.NoError(t, repos.tasks.Update(got))
	got, err = repos.tasks.GetByID("owner-a", task.ID)
	require.NoError(t, err)
	assert.True(t, got.Completed)
	assert.Equal(t, "buy milk", got.Description)

	_, err = repos.tasks.Delete("owner-b", task.ID)
	assert.ErrorIs(t, err, repositories.ErrNotFound)

	deleted, err := repos.tasks.Delete("owner-a", task.ID)
	require.NoError(t, err)
	assert.Equal(t, task.ID, deleted.ID)

	_, err = repos.tasks.GetByID("owner-a", task.ID)
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}

func testTaskListing(t *testing.T, repos repoSet) {
	for _, tc := range []struct {
		desc      string
		completed bool
	}{
		{"c", false},
		{"a", true},
		{"d", true},
		{"b", false},
	} {
		require.NoError(t, repos.tasks.Create(&models.Task{Description: tc.desc, Completed: tc.completed, OwnerID: "owner"}))
		time.Sleep(2 * time.Millisecond)
	}
	require.NoError(t, repos.tasks.Create(&models.Task{Description: "z", OwnerID: "someone-else"}))

	all, err := repos.tasks.List("owner", repositories.TaskQuery{})
	require.NoError(t, err)
	assert.Len(t, all, 4)

	yes, no := true, false
	done, err := repos.tasks.List("owner", repositories.TaskQuery{Completed: &yes})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "d"}, descriptions(done))

	open, err := repos.tasks.List("owner", repositories.TaskQuery{Completed: &no})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"b", "c"}, descriptions(open))

	asc, err := repos.tasks.List("owner", repositories.TaskQuery{SortField: "description"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "d"}, descriptions(asc))

	desc, err := repos.tasks.List("owner", repositories.TaskQuery{SortField: "description", SortDesc: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"d", "c", "b", "a"}, descriptions(desc))

	byCreation, err := repos.tasks.List("owner", repositories.TaskQuery{SortField: "createdAt", SortDesc: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "d", "a", "c"}, descriptions(byCreation))

	page, err := repos.tasks.List("owner", repositories.TaskQuery{SortField: "description", Limit: 2, Skip: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, descriptions(page))

	beyond, err := repos.tasks.List("owner", repositories.TaskQuery{SortField: "description", Limit: 2, Skip: 10})
	require.NoError(t, err)
	assert.NotNil(t, beyond)
	assert.Empty(t, beyond)

	unknown, err := repos.tasks.List("owner", repositories.TaskQuery{SortField: "priority"})
	require.NoError(t, err)
	assert.Len(t, unknown, 4)

	none, err := repos.tasks.List("nobody", repositories.TaskQuery{})
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func testTaskPagingIsStable(t *testing.T, repos repoSet) {
	const total, pageSize = 20, 5
	created := make([]string, 0, total)
	for i := 0; i < total; i++ {
		task := &models.Task{Description: fmt.Sprintf("task %02d", i), OwnerID: "owner"}
		require.NoError(t, repos.tasks.Create(task))
		created = append(created, task.ID)
	}

	for walk := 0; walk < 10; walk++ {
		seen := make(map[string]bool, total)
		var order []string
		for skip := 0; skip < total; skip += pageSize {
			page, err := repos.tasks.List("owner", repositories.TaskQuery{Limit: pageSize, Skip: skip})
			require.NoError(t, err)
			require.Len(t, page, pageSize)
			for _, task := range page {
				require.False(t, seen[task.ID], "task %s returned on two pages", task.ID)
				seen[task.ID] = true
				order = append(order, task.ID)
			}
		}
		assert.ElementsMatch(t, created, order)
	}

	// ties on the sort key fall back to creation order as well
	for walk := 0; walk < 5; walk++ {
		seen := make(map[string]bool, total)
		for skip := 0; skip < total; skip += pageSize {
			page, err := repos.tasks.List("owner", repositories.TaskQuery{SortField: "completed", Limit: pageSize, Skip: skip})
			require.NoError(t, err)
			for _, task := range page {
				require.False(t, seen[task.ID], "task %s returned on two pages", task.ID)
				seen[task.ID] = true
			}
		}
		assert.Len(t, seen, total)
	}
}

func testTaskDeleteByOwner(t *testing.T, repos repoSet) {
	for i := 0; i < 3; i++ {
		require.NoError(t, repos.tasks.Create(&models.Task{Description: "mine", OwnerID: "owner"}))
	}
	require.NoError(t, repos.tasks.Create(&models.Task{Description: "theirs", OwnerID: "other"}))

	n, err := repos.tasks.DeleteByOwner("owner")
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	left, err := repos.tasks.List("owner", repositories.TaskQuery{})
	require.NoError(t, err)
	assert.Empty(t, left)

	theirs, err := repos.tasks.List("other", repositories.TaskQuery{})
	require.NoError(t, err)
	assert.Len(t, theirs, 1)
}

func descriptions(tasks []models.Task) []string {
	out := make([]string, 0, len(tasks))
	for _, task := range tasks {
		out = append(out, task.Description)
	}
	return out
}
