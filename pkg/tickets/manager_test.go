package tickets

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/Jacobbrewer1/discordgo"
	"github.com/byteshield/lynx/pkg/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	testGuildID    = "guild-1"
	testCategoryID = "category-1"
	testLogID      = "log-1"
	testStaffID    = "staff-1"
	testBotID      = "bot-1"
)

// fakeGuildDal is an in-memory GuildDal.
type fakeGuildDal struct {
	guilds map[string]*entities.Guild
}

func (f *fakeGuildDal) SaveGuild(_ context.Context, guild *entities.Guild) error {
	f.guilds[guild.ID] = guild
	return nil
}

func (f *fakeGuildDal) GetGuildByID(_ context.Context, id string) (*entities.Guild, error) {
	g, ok := f.guilds[id]
	if !ok {
		return nil, fmt.Errorf("error getting guild: %w", mongo.ErrNoDocuments)
	}
	return g, nil
}

// fakeSession is an in-memory ChannelSession.
type fakeSession struct {
	channels map[string]*discordgo.Channel
	created  []discordgo.GuildChannelCreateData
	deleted  []string
	sent     map[string][]*discordgo.MessageSend
	audit    map[string][]string

	nextID int

	// onSendComplex runs before a complex send, simulating work done by a
	// concurrent task while this flow is suspended on I/O.
	onSendComplex func()

	deleteErr error
	auditErr  error
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		channels: make(map[string]*discordgo.Channel),
		sent:     make(map[string][]*discordgo.MessageSend),
		audit:    make(map[string][]string),
	}
}

func unknownChannelErr() error {
	return &discordgo.RESTError{
		Message:  &discordgo.APIErrorMessage{Code: discordgo.ErrCodeUnknownChannel},
		Response: &http.Response{Status: "404 Not Found"},
	}
}

func (f *fakeSession) Channel(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error) {
	c, ok := f.channels[channelID]
	if !ok {
		return nil, unknownChannelErr()
	}
	return c, nil
}

func (f *fakeSession) GuildChannelCreateComplex(guildID string, data discordgo.GuildChannelCreateData, options ...discordgo.RequestOption) (*discordgo.Channel, error) {
	f.nextID++
	f.created = append(f.created, data)

	c := &discordgo.Channel{
		ID:       "chan-" + strconv.Itoa(f.nextID),
		GuildID:  guildID,
		Name:     data.Name,
		Topic:    data.Topic,
		ParentID: data.ParentID,
	}
	f.channels[c.ID] = c
	return c, nil
}

func (f *fakeSession) ChannelDelete(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error) {
	if f.deleteErr != nil {
		return nil, f.deleteErr
	}
	c, ok := f.channels[channelID]
	if !ok {
		return nil, unknownChannelErr()
	}
	delete(f.channels, channelID)
	f.deleted = append(f.deleted, channelID)
	return c, nil
}

func (f *fakeSession) ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	if f.onSendComplex != nil {
		f.onSendComplex()
	}
	f.sent[channelID] = append(f.sent[channelID], data)
	return &discordgo.Message{ID: "msg-1", ChannelID: channelID}, nil
}

func (f *fakeSession) ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	if f.auditErr != nil {
		return nil, f.auditErr
	}
	f.audit[channelID] = append(f.audit[channelID], content)
	return &discordgo.Message{ID: "msg-2", ChannelID: channelID}, nil
}

func member(id string, roles ...string) *discordgo.Member {
	return &discordgo.Member{
		User:  &discordgo.User{ID: id, Username: "member " + id},
		Roles: roles,
	}
}

func newTestManager(t *testing.T) (*Manager, *fakeSession, *fakeGuildDal) {
	t.Helper()

	s := newFakeSession()
	gd := &fakeGuildDal{guilds: map[string]*entities.Guild{
		testGuildID: {
			ID: testGuildID,
			Ticketing: entities.TicketingConfig{
				CategoryID:   testCategoryID,
				LogChannelID: testLogID,
				StaffRoleID:  testStaffID,
			},
		},
	}}

	w := Window{OpenHour: 9, CloseHour: 17, Location: time.UTC}

	registry := newTestRegistry(t)
	return NewManager(registry.l, s, gd, registry, w, testBotID), s, gd
}

func openTime() time.Time {
	return time.Date(2024, 3, 14, 10, 0, 0, 0, time.UTC)
}

func TestManager_OpenTicket(t *testing.T) {
	m, s, _ := newTestManager(t)

	ticket, err := m.OpenTicket(context.Background(), testGuildID, member("u1"), openTime())
	require.NoError(t, err)
	require.NotNil(t, ticket)

	// The channel went under the configured category with the welcome
	// message posted into it.
	require.Len(t, s.created, 1)
	assert.Equal(t, testCategoryID, s.created[0].ParentID)
	assert.Equal(t, discordgo.ChannelTypeGuildText, s.created[0].Type)
	require.Len(t, s.sent[ticket.ChannelID], 1)

	// Visibility: @everyone denied view; requester, staff and bot granted.
	overwrites := s.created[0].PermissionOverwrites
	require.Len(t, overwrites, 4)
	byID := make(map[string]*discordgo.PermissionOverwrite, len(overwrites))
	for _, ow := range overwrites {
		byID[ow.ID] = ow
	}
	assert.EqualValues(t, discordgo.PermissionViewChannel, byID[testGuildID].Deny)
	assert.NotZero(t, byID["u1"].Allow&discordgo.PermissionViewChannel)
	assert.NotZero(t, byID["u1"].Allow&discordgo.PermissionAttachFiles)
	assert.NotZero(t, byID[testStaffID].Allow&discordgo.PermissionSendMessages)
	assert.NotZero(t, byID[testBotID].Allow&discordgo.PermissionViewChannel)

	// The close button carries the captured identity.
	welcome := s.sent[ticket.ChannelID][0]
	row, ok := welcome.Components[0].(discordgo.ActionsRow)
	require.True(t, ok)
	button, ok := row.Components[0].(discordgo.Button)
	require.True(t, ok)
	binding, err := ParseCloseBinding(button.CustomID)
	require.NoError(t, err)
	assert.Equal(t, CloseBinding{UserID: "u1", LogChannelID: testLogID, StaffRoleID: testStaffID}, binding)

	// The registry committed the entry.
	got, found := m.Registry().Get("u1")
	require.True(t, found)
	assert.Equal(t, ticket.ChannelID, got.ChannelID)
	assert.Equal(t, testGuildID, got.GuildID)
}

func TestManager_OpenTicketOutsideWindow(t *testing.T) {
	m, s, _ := newTestManager(t)

	tests := []struct {
		name string
		at   time.Time
	}{
		{name: "BeforeOpen", at: time.Date(2024, 3, 14, 8, 59, 0, 0, time.UTC)},
		{name: "AfterClose", at: time.Date(2024, 3, 14, 17, 1, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.OpenTicket(context.Background(), testGuildID, member("u1"), tt.at)
			require.ErrorIs(t, err, ErrOutsideWindow)

			// No side effects at all.
			assert.Empty(t, s.created)
			assert.Equal(t, 0, m.Registry().Len())
		})
	}
}

func TestManager_OpenTicketNotConfigured(t *testing.T) {
	m, s, _ := newTestManager(t)

	_, err := m.OpenTicket(context.Background(), "other-guild", member("u1"), openTime())
	require.ErrorIs(t, err, ErrNotConfigured)
	assert.Empty(t, s.created)
}

func TestManager_OpenTicketDuplicate(t *testing.T) {
	m, s, _ := newTestManager(t)

	first, err := m.OpenTicket(context.Background(), testGuildID, member("u1"), openTime())
	require.NoError(t, err)

	_, err = m.OpenTicket(context.Background(), testGuildID, member("u1"), openTime())

	// The rejection references the existing channel and nothing new exists.
	dup := new(DuplicateTicketError)
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, first.ChannelID, dup.ChannelID)
	assert.Len(t, s.created, 1)
	assert.Equal(t, 1, m.Registry().Len())
}

func TestManager_OpenTicketSelfHeals(t *testing.T) {
	m, s, _ := newTestManager(t)

	// An entry pointing at a channel that no longer exists on the platform.
	require.True(t, m.Registry().TryCreate(context.Background(), &entities.Ticket{
		UserID:    "u1",
		GuildID:   testGuildID,
		ChannelID: "gone-1",
	}))

	ticket, err := m.OpenTicket(context.Background(), testGuildID, member("u1"), openTime())
	require.NoError(t, err)

	// The stale entry was replaced exactly once.
	require.Equal(t, 1, m.Registry().Len())
	got, found := m.Registry().Get("u1")
	require.True(t, found)
	assert.Equal(t, ticket.ChannelID, got.ChannelID)
	assert.NotEqual(t, "gone-1", got.ChannelID)
	assert.NotContains(t, s.deleted, "gone-1")
}

func TestManager_OpenTicketCommitRace(t *testing.T) {
	m, s, _ := newTestManager(t)

	// While this flow is suspended posting the welcome message, a racing
	// request for the same member commits first.
	s.onSendComplex = func() {
		s.onSendComplex = nil
		require.True(t, m.Registry().TryCreate(context.Background(), &entities.Ticket{
			UserID:    "u1",
			GuildID:   testGuildID,
			ChannelID: "winner-1",
		}))
	}

	_, err := m.OpenTicket(context.Background(), testGuildID, member("u1"), openTime())

	// The loser sees the duplicate rejection pointing at the winner, and
	// its own channel did not leak.
	dup := new(DuplicateTicketError)
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "winner-1", dup.ChannelID)
	require.Len(t, s.created, 1)
	assert.Len(t, s.deleted, 1)

	got, found := m.Registry().Get("u1")
	require.True(t, found)
	assert.Equal(t, "winner-1", got.ChannelID)
}

func openForClose(t *testing.T, m *Manager) *entities.Ticket {
	t.Helper()
	ticket, err := m.OpenTicket(context.Background(), testGuildID, member("u1"), openTime())
	require.NoError(t, err)
	return ticket
}

func closeBinding(ticket *entities.Ticket) CloseBinding {
	return CloseBinding{
		UserID:       ticket.UserID,
		LogChannelID: ticket.LogChannelID,
		StaffRoleID:  ticket.StaffRoleID,
	}
}

func TestManager_CloseByControl(t *testing.T) {
	tests := []struct {
		name  string
		actor *discordgo.Member
	}{
		{name: "Requester", actor: member("u1")},
		{name: "Staff", actor: member("staffer", testStaffID)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, s, _ := newTestManager(t)
			ticket := openForClose(t, m)

			err := m.CloseByControl(context.Background(), closeBinding(ticket), ticket.ChannelID, tt.actor)
			require.NoError(t, err)

			assert.Equal(t, 0, m.Registry().Len())
			assert.Contains(t, s.deleted, ticket.ChannelID)

			// The audit line names the closer and the requester.
			require.Len(t, s.audit[testLogID], 1)
			assert.Contains(t, s.audit[testLogID][0], "<@"+tt.actor.User.ID+">")
			assert.Contains(t, s.audit[testLogID][0], "<@u1>")
		})
	}
}

func TestManager_CloseByControlUnauthorized(t *testing.T) {
	m, s, _ := newTestManager(t)
	ticket := openForClose(t, m)

	err := m.CloseByControl(context.Background(), closeBinding(ticket), ticket.ChannelID, member("intruder", "other-role"))
	require.ErrorIs(t, err, ErrNotAuthorized)

	// Registry and channel are untouched.
	assert.Equal(t, 1, m.Registry().Len())
	assert.Empty(t, s.deleted)
	assert.Empty(t, s.audit[testLogID])
}

func TestManager_CloseByControlRepeatedClick(t *testing.T) {
	m, s, _ := newTestManager(t)
	ticket := openForClose(t, m)
	bind := closeBinding(ticket)

	require.NoError(t, m.CloseByControl(context.Background(), bind, ticket.ChannelID, member("u1")))

	// A queued second click lands after the channel is gone; still a no-op.
	require.NoError(t, m.CloseByControl(context.Background(), bind, ticket.ChannelID, member("u1")))
	assert.Equal(t, 0, m.Registry().Len())
	assert.Len(t, s.deleted, 1)
	assert.Len(t, s.audit[testLogID], 1)
}

func TestManager_CloseByControlAuditFailureSwallowed(t *testing.T) {
	m, s, _ := newTestManager(t)
	ticket := openForClose(t, m)

	s.auditErr = unknownChannelErr()

	err := m.CloseByControl(context.Background(), closeBinding(ticket), ticket.ChannelID, member("u1"))
	require.NoError(t, err)
	assert.Equal(t, 0, m.Registry().Len())
	assert.Contains(t, s.deleted, ticket.ChannelID)
}

func TestManager_CloseByControlDeleteFailure(t *testing.T) {
	m, s, _ := newTestManager(t)
	ticket := openForClose(t, m)

	s.deleteErr = errors.New("boom")

	err := m.CloseByControl(context.Background(), closeBinding(ticket), ticket.ChannelID, member("u1"))
	require.Error(t, err)

	// The registry entry went first, so the member can open a new ticket.
	assert.Equal(t, 0, m.Registry().Len())
}

func TestManager_CloseByCommand(t *testing.T) {
	m, s, _ := newTestManager(t)
	ticket := openForClose(t, m)

	err := m.CloseByCommand(context.Background(), testGuildID, ticket.ChannelID, member("staffer", testStaffID))
	require.NoError(t, err)

	assert.Equal(t, 0, m.Registry().Len())
	assert.Contains(t, s.deleted, ticket.ChannelID)
	require.Len(t, s.audit[testLogID], 1)
	assert.Contains(t, s.audit[testLogID][0], "<@staffer>")
	assert.Contains(t, s.audit[testLogID][0], "<@u1>")

	// Closing again finds no registry entry and the channel deletion comes
	// back unknown-channel. That is a no-op, not an error, and nothing is
	// audited twice.
	err = m.CloseByCommand(context.Background(), testGuildID, ticket.ChannelID, member("staffer", testStaffID))
	require.NoError(t, err)
	assert.Equal(t, 0, m.Registry().Len())
	assert.Len(t, s.deleted, 1)
	assert.Len(t, s.audit[testLogID], 1)
}

func TestManager_CloseByCommandAuthorization(t *testing.T) {
	m, _, _ := newTestManager(t)
	ticket := openForClose(t, m)

	// Non-staff is rejected against the current configuration.
	err := m.CloseByCommand(context.Background(), testGuildID, ticket.ChannelID, member("u1"))
	require.ErrorIs(t, err, ErrNotAuthorized)
	assert.Equal(t, 1, m.Registry().Len())

	// Unconfigured guild is an informational rejection.
	err = m.CloseByCommand(context.Background(), "other-guild", ticket.ChannelID, member("staffer", testStaffID))
	require.ErrorIs(t, err, ErrNotConfigured)
}

func TestManager_CloseByCommandStaffRoleChange(t *testing.T) {
	m, _, gd := newTestManager(t)
	ticket := openForClose(t, m)

	// The command path authorizes against the current config, so a staff
	// role change applies immediately.
	gd.guilds[testGuildID].Ticketing.StaffRoleID = "new-staff"

	err := m.CloseByCommand(context.Background(), testGuildID, ticket.ChannelID, member("old-staffer", testStaffID))
	require.ErrorIs(t, err, ErrNotAuthorized)

	err = m.CloseByCommand(context.Background(), testGuildID, ticket.ChannelID, member("new-staffer", "new-staff"))
	require.NoError(t, err)
}
