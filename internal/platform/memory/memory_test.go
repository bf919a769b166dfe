package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ziadkadry99/teamsync/internal/platform"
)

func TestCreateTeamAddsActor(t *testing.T) {
	ctx := context.Background()
	org := New("bot")

	desc := "Core team"
	created, err := org.CreateTeam(ctx, "acme", platform.TeamInput{Name: "Core Infra", Description: &desc})
	require.NoError(t, err)
	assert.Equal(t, "core-infra", created.Slug)
	assert.Equal(t, []string{"bot"}, org.Members("core-infra"))
	assert.Equal(t, "Core team", org.Team("core-infra").Description)

	_, err = org.CreateTeam(ctx, "acme", platform.TeamInput{Name: "Core Infra"})
	assert.Error(t, err)
}

func TestGetTeamNotFound(t *testing.T) {
	_, err := New("bot").GetTeam(context.Background(), "acme", "nope")
	assert.ErrorIs(t, err, platform.ErrTeamNotFound)
}

func TestMembershipCaseInsensitive(t *testing.T) {
	ctx := context.Background()
	org := New("bot")
	org.SeedTeam("Core", "", []string{"Alice"})

	require.NoError(t, org.AddMember(ctx, "acme", "core", "alice"))
	assert.Equal(t, []string{"Alice"}, org.Members("core"))

	require.NoError(t, org.RemoveMember(ctx, "acme", "core", "ALICE"))
	assert.Empty(t, org.Members("core"))
}

func TestGrantsAndCalls(t *testing.T) {
	ctx := context.Background()
	org := New("bot", "acme/api")
	org.SeedTeam("Core", "", nil, platform.Grant{Repository: "acme/Old", Permission: platform.PermissionPull})

	require.NoError(t, org.GrantRepo(ctx, "acme", "core", "acme", "api", platform.PermissionAdmin))
	require.NoError(t, org.RevokeRepo(ctx, "acme", "core", "acme", "old"))

	assert.Equal(t, []platform.Grant{{Repository: "acme/api", Permission: platform.PermissionAdmin}}, org.Grants("core"))

	var got []string
	for _, c := range org.Calls() {
		got = append(got, c.String())
	}
	assert.Equal(t, []string{"GrantRepo core acme/api:admin", "RevokeRepo core acme/old"}, got)

	org.ResetCalls()
	assert.Empty(t, org.Calls())
}

func TestFailOn(t *testing.T) {
	ctx := context.Background()
	org := New("bot")
	org.SeedTeam("Core", "", nil)
	org.SeedTeam("Web", "", nil)
	boom := errors.New("boom")
	org.FailOn("AddMember", "web", boom)
	org.FailOn("ListRepositories", "", boom)

	assert.NoError(t, org.AddMember(ctx, "acme", "core", "alice"))
	assert.ErrorIs(t, org.AddMember(ctx, "acme", "web", "alice"), boom)

	_, err := org.ListRepositories(ctx, "acme")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, org.CatalogFetches())
}

func TestFiles(t *testing.T) {
	ctx := context.Background()
	org := New("bot")
	org.SetFile("acme", "admin", "teams.yml", platform.File{Content: "Core:\n  members: []\n"})

	f, err := org.GetFile(ctx, "acme", "admin", "teams.yml", "main")
	require.NoError(t, err)
	assert.Contains(t, f.Content, "Core")

	_, err = org.GetFile(ctx, "acme", "admin", "missing.yml", "")
	assert.Error(t, err)
}
