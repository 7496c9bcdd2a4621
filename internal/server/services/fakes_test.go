package services

import (
	"context"
	"database/sql"
	"sort"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/secrypt/secrypt/internal/chat"
	"github.com/secrypt/secrypt/internal/dbx"
	"github.com/secrypt/secrypt/internal/server/config"
	"github.com/secrypt/secrypt/internal/server/repositories/accesslogs"
	"github.com/secrypt/secrypt/internal/server/repositories/attachments"
	"github.com/secrypt/secrypt/internal/server/repositories/contents"
	"github.com/secrypt/secrypt/internal/server/repositories/conversations"
	"github.com/secrypt/secrypt/internal/server/repositories/identities"
	"github.com/secrypt/secrypt/internal/server/repositories/memberships"
	"github.com/secrypt/secrypt/internal/server/repositories/reactions"
)

// fakeStore is a single in-memory backing store shared by all fake
// repositories, mirroring the real schema's constraints where the services
// depend on them.
type fakeStore struct {
	identities    map[string]*chat.Identity
	conversations map[string]*chat.Conversation
	memberships   map[string]*chat.Membership
	contents      map[string]*chat.Content
	edits         []*chat.ContentEdit
	reactions     map[string]*chat.Reaction
	attachments   map[string]*chat.Attachment
	accessLogs    []*chat.AccessLog

	// The race hooks, when set, run once just before the corresponding
	// write to simulate a concurrent writer landing first.
	raceReaction      func()
	raceOwner         func()
	raceContentDelete func()
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		identities:    map[string]*chat.Identity{},
		conversations: map[string]*chat.Conversation{},
		memberships:   map[string]*chat.Membership{},
		contents:      map[string]*chat.Content{},
		reactions:     map[string]*chat.Reaction{},
		attachments:   map[string]*chat.Attachment{},
	}
}

func uniqueViolation(constraint string) error {
	return &pgconn.PgError{Code: "23505", ConstraintName: constraint}
}

type fakeRepoManager struct{ s *fakeStore }

func (m *fakeRepoManager) Identities(dbx.DBTX) identities.Repository       { return &fakeIdentityRepo{m.s} }
func (m *fakeRepoManager) Conversations(dbx.DBTX) conversations.Repository { return &fakeConvRepo{m.s} }
func (m *fakeRepoManager) Memberships(dbx.DBTX) memberships.Repository {
	return &fakeMembershipRepo{m.s}
}
func (m *fakeRepoManager) Contents(dbx.DBTX) contents.Repository       { return &fakeContentRepo{m.s} }
func (m *fakeRepoManager) Reactions(dbx.DBTX) reactions.Repository     { return &fakeReactionRepo{m.s} }
func (m *fakeRepoManager) Attachments(dbx.DBTX) attachments.Repository { return &fakeAttachRepo{m.s} }
func (m *fakeRepoManager) AccessLogs(dbx.DBTX) accesslogs.Repository   { return &fakeAccessLogRepo{m.s} }
func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }

// --- identities ---

type fakeIdentityRepo struct{ s *fakeStore }

func (f *fakeIdentityRepo) Create(_ context.Context, i *chat.Identity) error {
	for _, other := range f.s.identities {
		if other.Email == i.Email {
			return uniqueViolation("identities_email_unique")
		}
	}
	f.s.identities[i.ID] = i
	return nil
}

func (f *fakeIdentityRepo) GetByID(_ context.Context, id string) (*chat.Identity, error) {
	i, ok := f.s.identities[id]
	if !ok {
		return nil, chat.NewNotFound("identity")
	}
	return i, nil
}

func (f *fakeIdentityRepo) GetByEmail(_ context.Context, email string) (*chat.Identity, error) {
	for _, i := range f.s.identities {
		if i.Email == email {
			return i, nil
		}
	}
	return nil, chat.NewNotFound("identity")
}

func (f *fakeIdentityRepo) GetByVerificationToken(_ context.Context, token string) (*chat.Identity, error) {
	for _, i := range f.s.identities {
		if i.EmailVerificationToken == token && token != "" {
			return i, nil
		}
	}
	return nil, chat.NewNotFound("identity")
}

func (f *fakeIdentityRepo) GetByPasswordResetToken(_ context.Context, tokenHash string, now time.Time) (*chat.Identity, error) {
	for _, i := range f.s.identities {
		if i.PasswordResetToken == tokenHash && tokenHash != "" &&
			i.PasswordResetExpires != nil && i.PasswordResetExpires.After(now) {
			return i, nil
		}
	}
	return nil, chat.NewNotFound("identity")
}

func (f *fakeIdentityRepo) UpdatePresence(ctx context.Context, id string, status chat.PresenceStatus, lastSeen time.Time) error {
	i, err := f.GetByID(ctx, id)
	if err != nil {
		return err
	}
	i.Status = status
	i.LastSeen = lastSeen
	return nil
}

func (f *fakeIdentityRepo) SetEmailVerified(ctx context.Context, id string) error {
	i, err := f.GetByID(ctx, id)
	if err != nil {
		return err
	}
	i.EmailVerified = true
	i.EmailVerificationToken = ""
	return nil
}

func (f *fakeIdentityRepo) SetPasswordReset(ctx context.Context, id, tokenHash string, expires *time.Time) error {
	i, err := f.GetByID(ctx, id)
	if err != nil {
		return err
	}
	i.PasswordResetToken = tokenHash
	i.PasswordResetExpires = expires
	return nil
}

func (f *fakeIdentityRepo) SetPasswordHash(ctx context.Context, id, hash string) error {
	i, err := f.GetByID(ctx, id)
	if err != nil {
		return err
	}
	i.PasswordHash = hash
	return nil
}

func (f *fakeIdentityRepo) Deactivate(ctx context.Context, id string, at time.Time) error {
	i, err := f.GetByID(ctx, id)
	if err != nil {
		return err
	}
	i.IsActive = false
	i.DeactivatedAt = &at
	return nil
}

// --- conversations ---

type fakeConvRepo struct{ s *fakeStore }

func (f *fakeConvRepo) Create(_ context.Context, c *chat.Conversation) error {
	f.s.conversations[c.ID] = c
	return nil
}

func (f *fakeConvRepo) GetByID(_ context.Context, id string) (*chat.Conversation, error) {
	c, ok := f.s.conversations[id]
	if !ok {
		return nil, chat.NewNotFound("conversation")
	}
	return c, nil
}

func (f *fakeConvRepo) GetByInviteCode(_ context.Context, code string) (*chat.Conversation, error) {
	for _, c := range f.s.conversations {
		if c.InviteCode == code && c.IsGroup() && !c.IsArchived {
			return c, nil
		}
	}
	return nil, chat.NewNotFound("conversation")
}

func (f *fakeConvRepo) activeMember(conversationID, identityID string) bool {
	for _, m := range f.s.memberships {
		if m.ConversationID == conversationID && m.IdentityID == identityID && m.IsActive() {
			return true
		}
	}
	return false
}

func (f *fakeConvRepo) FindDirect(_ context.Context, identityA, identityB string) (*chat.Conversation, error) {
	for _, c := range f.s.conversations {
		if c.Type != chat.ConversationDirect {
			continue
		}
		if f.activeMember(c.ID, identityA) && f.activeMember(c.ID, identityB) {
			return c, nil
		}
	}
	return nil, chat.NewNotFound("conversation")
}

func (f *fakeConvRepo) ListByIdentity(_ context.Context, identityID string, archived bool, limit int) ([]*chat.Conversation, error) {
	var out []*chat.Conversation
	for _, c := range f.s.conversations {
		if c.IsArchived == archived && f.activeMember(c.ID, identityID) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastActivity.After(out[j].LastActivity) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeConvRepo) UpdateSettings(ctx context.Context, id string, settings chat.ConversationSettings) error {
	c, err := f.GetByID(ctx, id)
	if err != nil {
		return err
	}
	c.Settings = settings
	return nil
}

func (f *fakeConvRepo) SetArchived(ctx context.Context, id string, archived bool) error {
	c, err := f.GetByID(ctx, id)
	if err != nil {
		return err
	}
	c.IsArchived = archived
	return nil
}

func (f *fakeConvRepo) SetInviteCode(ctx context.Context, id, code string) error {
	c, err := f.GetByID(ctx, id)
	if err != nil {
		return err
	}
	c.InviteCode = code
	return nil
}

func (f *fakeConvRepo) AdvanceActivity(ctx context.Context, id string, lastMessageID *string, at time.Time) error {
	c, err := f.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if lastMessageID != nil {
		c.LastMessageID = lastMessageID
	}
	c.LastActivity = at
	return nil
}

// --- memberships ---

type fakeMembershipRepo struct{ s *fakeStore }

func (f *fakeMembershipRepo) Create(_ context.Context, m *chat.Membership) error {
	for _, other := range f.s.memberships {
		if other.ConversationID != m.ConversationID || !other.IsActive() {
			continue
		}
		if other.IdentityID == m.IdentityID {
			return uniqueViolation("memberships_active_unique")
		}
		if other.Role == chat.RoleOwner && m.Role == chat.RoleOwner {
			return uniqueViolation("memberships_owner_unique")
		}
	}
	f.s.memberships[m.ID] = m
	return nil
}

func (f *fakeMembershipRepo) GetByID(_ context.Context, id string) (*chat.Membership, error) {
	m, ok := f.s.memberships[id]
	if !ok {
		return nil, chat.NewNotFound("membership")
	}
	return m, nil
}

func (f *fakeMembershipRepo) GetActive(_ context.Context, conversationID, identityID string) (*chat.Membership, error) {
	for _, m := range f.s.memberships {
		if m.ConversationID == conversationID && m.IdentityID == identityID && m.IsActive() {
			return m, nil
		}
	}
	return nil, chat.NewNotFound("membership")
}

func (f *fakeMembershipRepo) CountActive(_ context.Context, conversationID string) (int, error) {
	n := 0
	for _, m := range f.s.memberships {
		if m.ConversationID == conversationID && m.IsActive() {
			n++
		}
	}
	return n, nil
}

func (f *fakeMembershipRepo) List(_ context.Context, conversationID string, includeLeft bool, role chat.Role) ([]*chat.Membership, error) {
	var out []*chat.Membership
	for _, m := range f.s.memberships {
		if m.ConversationID != conversationID {
			continue
		}
		if !includeLeft && !m.IsActive() {
			continue
		}
		if role != "" && m.Role != role {
			continue
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JoinedAt.Before(out[j].JoinedAt) })
	return out, nil
}

func (f *fakeMembershipRepo) SetLeft(ctx context.Context, id string, at time.Time) error {
	m, err := f.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !m.IsActive() {
		return chat.NewNotFound("membership")
	}
	m.LeftAt = &at
	return nil
}

func (f *fakeMembershipRepo) UpdateRole(ctx context.Context, id string, role chat.Role, permissions chat.PermissionSet) error {
	m, err := f.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if role == chat.RoleOwner {
		if f.s.raceOwner != nil {
			race := f.s.raceOwner
			f.s.raceOwner = nil
			race()
		}
		for _, other := range f.s.memberships {
			if other.ID != id && other.ConversationID == m.ConversationID &&
				other.IsActive() && other.Role == chat.RoleOwner {
				return uniqueViolation("memberships_owner_unique")
			}
		}
	}
	m.Role = role
	m.Permissions = permissions
	return nil
}

func (f *fakeMembershipRepo) UpdateLastRead(ctx context.Context, id, contentID string, at time.Time) error {
	m, err := f.GetByID(ctx, id)
	if err != nil {
		return err
	}
	m.LastReadMessageID = &contentID
	m.LastActiveAt = at
	return nil
}

func (f *fakeMembershipRepo) UpdateMute(ctx context.Context, id string, muted bool, until *time.Time) error {
	m, err := f.GetByID(ctx, id)
	if err != nil {
		return err
	}
	m.IsMuted = muted
	m.MutedUntil = until
	return nil
}

func (f *fakeMembershipRepo) SetFavorite(ctx context.Context, id string, favorite bool) error {
	m, err := f.GetByID(ctx, id)
	if err != nil {
		return err
	}
	m.IsFavorite = favorite
	return nil
}

func (f *fakeMembershipRepo) UpdateNotificationSettings(ctx context.Context, id string, settings chat.NotificationSettings) error {
	m, err := f.GetByID(ctx, id)
	if err != nil {
		return err
	}
	m.NotificationSettings = settings
	return nil
}

// --- contents ---

type fakeContentRepo struct{ s *fakeStore }

func (f *fakeContentRepo) Create(_ context.Context, c *chat.Content) error {
	f.s.contents[c.ID] = c
	return nil
}

func (f *fakeContentRepo) GetByID(_ context.Context, id string) (*chat.Content, error) {
	c, ok := f.s.contents[id]
	if !ok {
		return nil, chat.NewNotFound("content")
	}
	return c, nil
}

func (f *fakeContentRepo) List(_ context.Context, conversationID string, before *time.Time, limit int, includeDeleted bool) ([]*chat.Content, error) {
	var out []*chat.Content
	for _, c := range f.s.contents {
		if c.ConversationID != conversationID {
			continue
		}
		if before != nil && !c.CreatedAt.Before(*before) {
			continue
		}
		if !includeDeleted && c.IsDeleted {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeContentRepo) UpdateBody(ctx context.Context, id, body string, editedAt time.Time) error {
	if f.s.raceContentDelete != nil {
		race := f.s.raceContentDelete
		f.s.raceContentDelete = nil
		race()
	}
	c, err := f.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if c.IsDeleted {
		return chat.NewNotFound("content")
	}
	c.Body = body
	c.IsEdited = true
	c.EditedAt = &editedAt
	return nil
}

func (f *fakeContentRepo) MarkDeleted(ctx context.Context, id string, at time.Time, deletedBy *string) error {
	c, err := f.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if c.IsDeleted {
		return chat.NewNotFound("content")
	}
	c.IsDeleted = true
	c.DeletedAt = &at
	c.DeletedBy = deletedBy
	return nil
}

func (f *fakeContentRepo) AppendEdit(_ context.Context, e *chat.ContentEdit) error {
	f.s.edits = append(f.s.edits, e)
	return nil
}

func (f *fakeContentRepo) ListEdits(_ context.Context, contentID string) ([]*chat.ContentEdit, error) {
	var out []*chat.ContentEdit
	for _, e := range f.s.edits {
		if e.ContentID == contentID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeContentRepo) CountNonDeleted(_ context.Context, conversationID string) (int, error) {
	n := 0
	for _, c := range f.s.contents {
		if c.ConversationID == conversationID && !c.IsDeleted {
			n++
		}
	}
	return n, nil
}

func (f *fakeContentRepo) CountAfter(_ context.Context, conversationID string, after time.Time) (int, error) {
	n := 0
	for _, c := range f.s.contents {
		if c.ConversationID == conversationID && !c.IsDeleted && c.CreatedAt.After(after) {
			n++
		}
	}
	return n, nil
}

// --- reactions ---

type fakeReactionRepo struct{ s *fakeStore }

func (f *fakeReactionRepo) Create(_ context.Context, r *chat.Reaction) error {
	if f.s.raceReaction != nil {
		race := f.s.raceReaction
		f.s.raceReaction = nil
		race()
	}
	for _, other := range f.s.reactions {
		if other.ContentID == r.ContentID && other.IdentityID == r.IdentityID && other.Emoji == r.Emoji {
			return uniqueViolation("reactions_content_identity_emoji_unique")
		}
	}
	f.s.reactions[r.ID] = r
	return nil
}

func (f *fakeReactionRepo) Find(_ context.Context, contentID, identityID, emoji string) (*chat.Reaction, error) {
	for _, r := range f.s.reactions {
		if r.ContentID == contentID && r.IdentityID == identityID && r.Emoji == emoji {
			return r, nil
		}
	}
	return nil, chat.NewNotFound("reaction")
}

func (f *fakeReactionRepo) Delete(_ context.Context, id string) error {
	if _, ok := f.s.reactions[id]; !ok {
		return chat.NewNotFound("reaction")
	}
	delete(f.s.reactions, id)
	return nil
}

func (f *fakeReactionRepo) ListByContent(_ context.Context, contentID string) ([]*chat.Reaction, error) {
	var out []*chat.Reaction
	for _, r := range f.s.reactions {
		if r.ContentID == contentID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeReactionRepo) Summary(_ context.Context, contentID string) ([]chat.ReactionCount, error) {
	counts := map[string]*chat.ReactionCount{}
	for _, r := range f.s.reactions {
		if r.ContentID != contentID {
			continue
		}
		rc, ok := counts[r.Emoji]
		if !ok {
			rc = &chat.ReactionCount{Emoji: r.Emoji, Category: r.Category}
			counts[r.Emoji] = rc
		}
		rc.Count++
	}
	var out []chat.ReactionCount
	for _, rc := range counts {
		out = append(out, *rc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out, nil
}

func (f *fakeReactionRepo) DeleteOrphaned(_ context.Context) (int64, error) {
	var n int64
	for id, r := range f.s.reactions {
		if c, ok := f.s.contents[r.ContentID]; ok && c.IsDeleted {
			delete(f.s.reactions, id)
			n++
		}
	}
	return n, nil
}

// --- attachments ---

type fakeAttachRepo struct{ s *fakeStore }

func (f *fakeAttachRepo) Create(_ context.Context, a *chat.Attachment) error {
	f.s.attachments[a.ID] = a
	return nil
}

func (f *fakeAttachRepo) GetByID(_ context.Context, id string) (*chat.Attachment, error) {
	a, ok := f.s.attachments[id]
	if !ok {
		return nil, chat.NewNotFound("attachment")
	}
	return a, nil
}

func (f *fakeAttachRepo) SetStatus(ctx context.Context, id string, status chat.AttachmentStatus) error {
	a, err := f.GetByID(ctx, id)
	if err != nil {
		return err
	}
	a.Status = status
	return nil
}

func (f *fakeAttachRepo) MarkDeleted(ctx context.Context, id string, at time.Time) error {
	a, err := f.GetByID(ctx, id)
	if err != nil {
		return err
	}
	a.IsDeleted = true
	a.DeletedAt = &at
	a.Status = chat.AttachmentDeleted
	return nil
}

func (f *fakeAttachRepo) IncrementDownloadCount(ctx context.Context, id string) error {
	a, err := f.GetByID(ctx, id)
	if err != nil {
		return err
	}
	a.DownloadCount++
	return nil
}

func (f *fakeAttachRepo) SoftDeleteExpired(_ context.Context, now time.Time) (int64, error) {
	var n int64
	for _, a := range f.s.attachments {
		if !a.IsDeleted && a.IsExpired(now) {
			a.IsDeleted = true
			a.DeletedAt = &now
			a.Status = chat.AttachmentDeleted
			n++
		}
	}
	return n, nil
}

// --- access logs ---

type fakeAccessLogRepo struct{ s *fakeStore }

func (f *fakeAccessLogRepo) Create(_ context.Context, l *chat.AccessLog) error {
	f.s.accessLogs = append(f.s.accessLogs, l)
	return nil
}

func (f *fakeAccessLogRepo) ListByAttachment(_ context.Context, attachmentID string, limit int) ([]*chat.AccessLog, error) {
	var out []*chat.AccessLog
	for _, l := range f.s.accessLogs {
		if l.AttachmentID == attachmentID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeAccessLogRepo) SuspiciousActivity(_ context.Context, since time.Time, minAttempts int) ([]chat.SuspiciousActivity, error) {
	type key struct{ ip, identity string }
	agg := map[key]*chat.SuspiciousActivity{}
	for _, l := range f.s.accessLogs {
		if l.Status == chat.AccessSuccess || l.CreatedAt.Before(since) {
			continue
		}
		k := key{l.IPAddress, l.IdentityID}
		sa, ok := agg[k]
		if !ok {
			sa = &chat.SuspiciousActivity{IPAddress: l.IPAddress, IdentityID: l.IdentityID}
			agg[k] = sa
		}
		sa.Attempts++
		if l.CreatedAt.After(sa.LastAttempt) {
			sa.LastAttempt = l.CreatedAt
		}
	}
	var out []chat.SuspiciousActivity
	for _, sa := range agg {
		if sa.Attempts >= minAttempts {
			out = append(out, *sa)
		}
	}
	return out, nil
}

func (f *fakeAccessLogRepo) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	var kept []*chat.AccessLog
	var n int64
	for _, l := range f.s.accessLogs {
		if l.CreatedAt.Before(cutoff) {
			n++
			continue
		}
		kept = append(kept, l)
	}
	f.s.accessLogs = kept
	return n, nil
}

// --- shared test setup ---

func newServiceDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

// expectTx arms one Begin/Commit pair for a service call that runs a
// transaction against the fakes.
func expectTx(mock sqlmock.Sqlmock) {
	mock.ExpectBegin()
	mock.ExpectCommit()
}

func expectTxRollback(mock sqlmock.Sqlmock) {
	mock.ExpectBegin()
	mock.ExpectRollback()
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	return cfg
}

// seedIdentity registers an identity directly in the store.
func seedIdentity(s *fakeStore, id, name string) *chat.Identity {
	i := &chat.Identity{
		ID:       id,
		Email:    name + "@example.com",
		Name:     name,
		Status:   chat.PresenceOffline,
		IsActive: true,
	}
	s.identities[id] = i
	return i
}

// seedGroup creates a group conversation with an owner membership.
func seedGroup(s *fakeStore, convID, ownerID string) *chat.Conversation {
	now := time.Now()
	c := &chat.Conversation{
		ID:              convID,
		Name:            "room",
		Type:            chat.ConversationGroup,
		CreatedBy:       ownerID,
		LastActivity:    now,
		MaxParticipants: chat.DefaultGroupMaxParticipant,
		InviteCode:      "AAAA1111",
		Settings:        chat.DefaultConversationSettings(),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	s.conversations[convID] = c
	seedMembership(s, convID+"-owner", convID, ownerID, chat.RoleOwner)
	return c
}

func seedMembership(s *fakeStore, id, convID, identityID string, role chat.Role) *chat.Membership {
	now := time.Now()
	m := &chat.Membership{
		ID:                   id,
		ConversationID:       convID,
		IdentityID:           identityID,
		Role:                 role,
		JoinedAt:             now,
		NotificationSettings: chat.DefaultNotificationSettings(),
		Permissions:          chat.DefaultPermissions(role),
		LastActiveAt:         now,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	s.memberships[id] = m
	return m
}

func seedContent(s *fakeStore, id, convID, senderID string, createdAt time.Time) *chat.Content {
	c := &chat.Content{
		ID:             id,
		ConversationID: convID,
		SenderID:       &senderID,
		Type:           chat.ContentText,
		Body:           "message " + id,
		CreatedAt:      createdAt,
		UpdatedAt:      createdAt,
	}
	s.contents[id] = c
	return c
}
