package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/MarcoPoloResearchLab/basket/internal/gateway"
)

func newTestMembership(t *testing.T) (*Membership, *gateway.Gateway, *testClock) {
	t.Helper()
	gw := newTestGateway(t, openTestDatabase(t))
	clock := newTestClock()
	membership, err := NewMembership(MembershipConfig{
		Gateway:    gw,
		IDProvider: &sequenceIDs{prefix: "ds"},
		Clock:      clock.Now,
		RetryDelay: time.Millisecond,
	})
	if err != nil {
		t.Fatalf("failed to construct membership: %v", err)
	}
	return membership, gw, clock
}

func mustState(t *testing.T, membership *Membership, userID string) (MembershipState, string) {
	t.Helper()
	state, datasetID, err := membership.State(context.Background(), userID)
	if err != nil {
		t.Fatalf("state failed: %v", err)
	}
	return state, datasetID
}

func TestSetupUserDatasetBindsUser(t *testing.T) {
	membership, _, _ := newTestMembership(t)
	ctx := context.Background()

	if state, _ := mustState(t, membership, "u-1"); state != Unbound {
		t.Fatalf("expected unbound user, got %s", state)
	}
	datasetID, err := membership.SetupUserDataset(ctx, "u-1")
	if err != nil {
		t.Fatalf("setup failed: %v", err)
	}
	state, boundTo := mustState(t, membership, "u-1")
	if state != Bound || boundTo != datasetID {
		t.Fatalf("expected bound to %s, got %s %s", datasetID, state, boundTo)
	}

	again, err := membership.SetupUserDataset(ctx, "u-1")
	if err != nil {
		t.Fatalf("second setup failed: %v", err)
	}
	if again != datasetID {
		t.Fatalf("expected bound user to keep dataset %s, got %s", datasetID, again)
	}
}

func TestInviteRedemptionJoinsDatasetOnce(t *testing.T) {
	membership, gw, _ := newTestMembership(t)
	ctx := context.Background()
	owner, err := membership.SetupUserDataset(ctx, "u-owner")
	if err != nil {
		t.Fatalf("setup failed: %v", err)
	}
	previous, err := membership.SetupUserDataset(ctx, "u-guest")
	if err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	invite, err := membership.CreateInvite(ctx, "u-owner")
	if err != nil {
		t.Fatalf("create invite failed: %v", err)
	}
	if len(invite.Code) != inviteCodeLength || invite.DatasetID != owner {
		t.Fatalf("unexpected invite %+v", invite)
	}
	if invite.ExpiresAt-invite.CreatedAt != defaultInviteTTL.Seconds() {
		t.Fatalf("unexpected invite lifetime %+v", invite)
	}

	joined, err := membership.JoinDataset(ctx, "u-guest", " "+invite.Code+" ")
	if err != nil {
		t.Fatalf("join failed: %v", err)
	}
	if joined != owner {
		t.Fatalf("expected to join %s, got %s", owner, joined)
	}
	if state, datasetID := mustState(t, membership, "u-guest"); state != Bound || datasetID != owner {
		t.Fatalf("expected guest bound to owner dataset, got %s %s", state, datasetID)
	}
	old, err := membership.datasets.Get(ctx, previous)
	if err != nil {
		t.Fatalf("get previous dataset failed: %v", err)
	}
	if old == nil || old.HasMember("u-guest") {
		t.Fatalf("expected guest removed from previous dataset, got %+v", old)
	}
	stored, err := gw.Get(ctx, invitePath(invite.Code))
	if err != nil || stored != nil {
		t.Fatalf("expected invite consumed, got %v (%v)", stored, err)
	}

	if _, err := membership.JoinDataset(ctx, "u-third", invite.Code); !errors.Is(err, ErrInviteNotFound) {
		t.Fatalf("expected redeemed invite to be gone, got %v", err)
	}
}

func TestConcurrentRedemptionAdmitsOneUser(t *testing.T) {
	membership, _, _ := newTestMembership(t)
	ctx := context.Background()
	if _, err := membership.SetupUserDataset(ctx, "u-owner"); err != nil {
		t.Fatalf("setup failed: %v", err)
	}
	invite, err := membership.CreateInvite(ctx, "u-owner")
	if err != nil {
		t.Fatalf("create invite failed: %v", err)
	}

	var wg sync.WaitGroup
	results := make(chan error, 2)
	for _, userID := range []string{"u-a", "u-b"} {
		wg.Add(1)
		go func(userID string) {
			defer wg.Done()
			_, err := membership.JoinDataset(ctx, userID, invite.Code)
			results <- err
		}(userID)
	}
	wg.Wait()
	close(results)

	succeeded, rejected := 0, 0
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ErrInviteNotFound):
			rejected++
		default:
			t.Fatalf("unexpected join error: %v", err)
		}
	}
	if succeeded != 1 || rejected != 1 {
		t.Fatalf("expected exactly one redemption, got %d succeeded and %d rejected", succeeded, rejected)
	}
}

func TestJoinDatasetRejectsBadCodes(t *testing.T) {
	membership, _, clock := newTestMembership(t)
	ctx := context.Background()
	if _, err := membership.SetupUserDataset(ctx, "u-owner"); err != nil {
		t.Fatalf("setup failed: %v", err)
	}
	invite, err := membership.CreateInvite(ctx, "u-owner")
	if err != nil {
		t.Fatalf("create invite failed: %v", err)
	}

	if _, err := membership.JoinDataset(ctx, "u-guest", "   "); !errors.Is(err, ErrEmptyInviteCode) {
		t.Fatalf("expected empty code error, got %v", err)
	}
	if _, err := membership.JoinDataset(ctx, "u-guest", "ZZZZZZ"); !errors.Is(err, ErrInviteNotFound) {
		t.Fatalf("expected not found error, got %v", err)
	}
	if _, err := membership.JoinDataset(ctx, "u-guest", "AB.CD"); !errors.Is(err, ErrInviteNotFound) {
		t.Fatalf("expected not found error for malformed code, got %v", err)
	}

	clock.Advance(defaultInviteTTL + time.Second)
	if _, err := membership.JoinDataset(ctx, "u-guest", invite.Code); !errors.Is(err, ErrInviteExpired) {
		t.Fatalf("expected expired error, got %v", err)
	}
}

func TestCreateInviteRequiresBoundUser(t *testing.T) {
	membership, _, _ := newTestMembership(t)
	if _, err := membership.CreateInvite(context.Background(), "u-lonely"); !errors.Is(err, ErrNotInDataset) {
		t.Fatalf("expected not in dataset error, got %v", err)
	}
}

func TestCreateInviteRetriesCodeCollisions(t *testing.T) {
	gw := newTestGateway(t, openTestDatabase(t))
	codes := []string{"AAAAAA", "AAAAAA", "BBBBBB"}
	membership, err := NewMembership(MembershipConfig{
		Gateway:    gw,
		IDProvider: &sequenceIDs{prefix: "ds"},
		CodeGenerator: func() (string, error) {
			code := codes[0]
			codes = codes[1:]
			return code, nil
		},
	})
	if err != nil {
		t.Fatalf("failed to construct membership: %v", err)
	}
	ctx := context.Background()
	if _, err := membership.SetupUserDataset(ctx, "u-owner"); err != nil {
		t.Fatalf("setup failed: %v", err)
	}
	first, err := membership.CreateInvite(ctx, "u-owner")
	if err != nil {
		t.Fatalf("first invite failed: %v", err)
	}
	second, err := membership.CreateInvite(ctx, "u-owner")
	if err != nil {
		t.Fatalf("second invite failed: %v", err)
	}
	if first.Code != "AAAAAA" || second.Code != "BBBBBB" {
		t.Fatalf("unexpected codes %q %q", first.Code, second.Code)
	}
}

func TestLeaveDatasetUnbindsUser(t *testing.T) {
	membership, _, _ := newTestMembership(t)
	ctx := context.Background()
	datasetID, err := membership.SetupUserDataset(ctx, "u-1")
	if err != nil {
		t.Fatalf("setup failed: %v", err)
	}
	if err := membership.LeaveDataset(ctx, "u-1"); err != nil {
		t.Fatalf("leave failed: %v", err)
	}
	if state, _ := mustState(t, membership, "u-1"); state != Unbound {
		t.Fatalf("expected unbound after leaving, got %s", state)
	}
	dataset, err := membership.datasets.Get(ctx, datasetID)
	if err != nil {
		t.Fatalf("get dataset failed: %v", err)
	}
	if dataset != nil && dataset.HasMember("u-1") {
		t.Fatalf("expected membership removed, got %+v", dataset)
	}
	if err := membership.LeaveDataset(ctx, "u-1"); err != nil {
		t.Fatalf("leaving twice should be a no-op, got %v", err)
	}
}

func TestResolveRecoversOrphanedUser(t *testing.T) {
	membership, gw, _ := newTestMembership(t)
	ctx := context.Background()
	original, err := membership.SetupUserDataset(ctx, "u-1")
	if err != nil {
		t.Fatalf("setup failed: %v", err)
	}
	if err := gw.Delete(ctx, datasetMemberPath(original, "u-1")); err != nil {
		t.Fatalf("failed to drop membership: %v", err)
	}
	if state, _ := mustState(t, membership, "u-1"); state != Orphaned {
		t.Fatalf("expected orphaned user, got %s", state)
	}

	resolved, err := membership.Resolve(ctx, "u-1")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if resolved == original {
		t.Fatalf("expected a fresh dataset for an orphaned user")
	}
	if state, datasetID := mustState(t, membership, "u-1"); state != Bound || datasetID != resolved {
		t.Fatalf("expected bound to %s, got %s %s", resolved, state, datasetID)
	}
}

func TestResolveSurfacesUnreachableDatasetAfterRetries(t *testing.T) {
	database := openTestDatabase(t)
	gw := newTestGateway(t, database)
	membership, err := NewMembership(MembershipConfig{
		Gateway:    gw,
		IDProvider: &sequenceIDs{prefix: "ds"},
		RetryDelay: time.Millisecond,
	})
	if err != nil {
		t.Fatalf("failed to construct membership: %v", err)
	}
	sqlDB, err := database.DB()
	if err != nil {
		t.Fatalf("failed to access sql db: %v", err)
	}
	if err := sqlDB.Close(); err != nil {
		t.Fatalf("failed to close sql db: %v", err)
	}

	_, err = membership.Resolve(context.Background(), "u-1")
	if !errors.Is(err, ErrDatasetUnreachable) {
		t.Fatalf("expected dataset unreachable, got %v", err)
	}
}
