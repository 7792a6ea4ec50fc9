package repository

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"strings"
	"time"

	"github.com/MarcoPoloResearchLab/basket/internal/catalog"
	"github.com/MarcoPoloResearchLab/basket/internal/gateway"
	"github.com/MarcoPoloResearchLab/basket/internal/metrics"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
)

const (
	opMembershipNew    = "membership.new"
	opMembershipState  = "membership.state"
	opSetupDataset     = "membership.setup_user_dataset"
	opCreateInvite     = "membership.create_invite"
	opJoinDataset      = "membership.join_dataset"
	opLeaveDataset     = "membership.leave_dataset"
	opRemoveMember     = "membership.delete_user_from_dataset"
	opResolveDataset   = "membership.resolve"
	defaultInviteTTL   = 7 * 24 * time.Hour
	inviteCodeLength   = 6
	inviteCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	inviteCodeAttempts = 5
	resolveAttempts    = 5
	defaultRetryDelay  = 200 * time.Millisecond
)

// MembershipState describes how a user relates to a dataset.
type MembershipState int

const (
	// Unbound users have no dataset pointer.
	Unbound MembershipState = iota
	// Bound users point at a dataset that lists them as a member.
	Bound
	// Orphaned users point at a dataset that is missing or no longer lists them.
	Orphaned
)

func (s MembershipState) String() string {
	switch s {
	case Bound:
		return "bound"
	case Orphaned:
		return "orphaned"
	default:
		return "unbound"
	}
}

// MembershipConfig describes the dependencies of a Membership service.
type MembershipConfig struct {
	Gateway    *gateway.Gateway
	IDProvider catalog.IDProvider
	Clock      func() time.Time
	InviteTTL  time.Duration
	// CodeGenerator overrides invite code generation.
	CodeGenerator func() (string, error)
	// RetryDelay is the pause between dataset resolution attempts.
	RetryDelay time.Duration
	Logger     *zap.Logger
	Metrics    *metrics.Registry
}

// Membership binds users to datasets and manages invites.
type Membership struct {
	gw            *gateway.Gateway
	datasets      DatasetRepository
	idProvider    catalog.IDProvider
	clock         func() time.Time
	inviteTTL     time.Duration
	codeGenerator func() (string, error)
	retryDelay    time.Duration
	logger        *zap.Logger
	failure       failure
}

// NewMembership validates cfg and constructs the service.
func NewMembership(cfg MembershipConfig) (*Membership, error) {
	if cfg.Gateway == nil {
		return nil, newServiceError(opMembershipNew, "missing_gateway", errMissingGateway)
	}
	if cfg.IDProvider == nil {
		return nil, newServiceError(opMembershipNew, "missing_id_provider", errMissingIDProvider)
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	inviteTTL := cfg.InviteTTL
	if inviteTTL <= 0 {
		inviteTTL = defaultInviteTTL
	}
	codeGenerator := cfg.CodeGenerator
	if codeGenerator == nil {
		codeGenerator = randomInviteCode
	}
	retryDelay := cfg.RetryDelay
	if retryDelay <= 0 {
		retryDelay = defaultRetryDelay
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &Membership{
		gw:            cfg.Gateway,
		datasets:      &datasetStore{gw: cfg.Gateway},
		idProvider:    cfg.IDProvider,
		clock:         clock,
		inviteTTL:     inviteTTL,
		codeGenerator: codeGenerator,
		retryDelay:    retryDelay,
		logger:        logger,
		failure:       failure{logger: logger, metrics: cfg.Metrics, message: "membership error"},
	}, nil
}

// State reports the user's membership state and the dataset id the user points at.
func (m *Membership) State(ctx context.Context, userID string) (MembershipState, string, error) {
	if userID == "" {
		return Unbound, "", newServiceError(opMembershipState, "missing_user_id", errMissingUserID)
	}
	state, datasetID, err := m.state(ctx, userID)
	if err != nil {
		return Unbound, "", m.failure.record(opMembershipState, "read_failed", err, zap.String("user_id", userID))
	}
	return state, datasetID, nil
}

func (m *Membership) state(ctx context.Context, userID string) (MembershipState, string, error) {
	datasetID, err := m.datasets.UserDatasetID(ctx, userID)
	if err != nil {
		return Unbound, "", err
	}
	if datasetID == "" {
		return Unbound, "", nil
	}
	dataset, err := m.datasets.Get(ctx, datasetID)
	if err != nil {
		return Unbound, "", err
	}
	if dataset == nil || !dataset.HasMember(userID) {
		return Orphaned, datasetID, nil
	}
	return Bound, datasetID, nil
}

// SetupUserDataset creates a dataset owned by userID and points the user at it in one
// multi-path update. A bound user keeps the current dataset.
func (m *Membership) SetupUserDataset(ctx context.Context, userID string) (string, error) {
	if userID == "" {
		return "", newServiceError(opSetupDataset, "missing_user_id", errMissingUserID)
	}
	state, datasetID, err := m.state(ctx, userID)
	if err != nil {
		return "", m.failure.record(opSetupDataset, "read_failed", err, zap.String("user_id", userID))
	}
	if state == Bound {
		return datasetID, nil
	}
	datasetID, err = m.idProvider.NewID()
	if err != nil {
		return "", m.failure.record(opSetupDataset, "id_generation_failed", err, zap.String("user_id", userID))
	}
	dataset := catalog.Dataset{ID: datasetID, Members: map[string]bool{userID: true}}
	if err := m.gw.UpdateMultiple(ctx, map[gateway.Path]gateway.Update{
		datasetInfoPath(datasetID): gateway.Set(dataset),
		userDatasetPath(userID):    gateway.Set(datasetID),
	}); err != nil {
		return "", m.failure.record(opSetupDataset, "write_failed", err,
			zap.String("user_id", userID),
			zap.String("dataset_id", datasetID))
	}
	m.logger.Info("dataset created", zap.String("user_id", userID), zap.String("dataset_id", datasetID))
	return datasetID, nil
}

// CreateInvite issues a single-use code for the dataset userID belongs to.
func (m *Membership) CreateInvite(ctx context.Context, userID string) (catalog.Invite, error) {
	if userID == "" {
		return catalog.Invite{}, newServiceError(opCreateInvite, "missing_user_id", errMissingUserID)
	}
	state, datasetID, err := m.state(ctx, userID)
	if err != nil {
		return catalog.Invite{}, m.failure.record(opCreateInvite, "read_failed", err, zap.String("user_id", userID))
	}
	if state != Bound {
		return catalog.Invite{}, newServiceError(opCreateInvite, "not_in_dataset", ErrNotInDataset)
	}
	now := m.clock()
	for attempt := 0; attempt < inviteCodeAttempts; attempt++ {
		code, err := m.codeGenerator()
		if err != nil {
			return catalog.Invite{}, m.failure.record(opCreateInvite, "code_generation_failed", err)
		}
		invite := catalog.Invite{
			Code:      code,
			DatasetID: datasetID,
			InvitedBy: userID,
			CreatedAt: unixSeconds(now),
			ExpiresAt: unixSeconds(now.Add(m.inviteTTL)),
		}
		path := invitePath(code)
		err = m.gw.UpdateMultiple(ctx, map[gateway.Path]gateway.Update{path: gateway.Set(invite)}, gateway.Missing(path))
		if errors.Is(err, gateway.ErrConditionFailed) {
			continue
		}
		if err != nil {
			return catalog.Invite{}, m.failure.record(opCreateInvite, "write_failed", err, zap.String("dataset_id", datasetID))
		}
		return invite, nil
	}
	return catalog.Invite{}, m.failure.record(opCreateInvite, "code_collision", errors.New("no free invite code"))
}

// JoinDataset redeems code for userID. Membership, the user's pointer and the invite's removal
// are written in one update guarded on the invite still existing, so a code can be redeemed
// once. A previous dataset membership of the user is dropped in the same update.
func (m *Membership) JoinDataset(ctx context.Context, userID, code string) (string, error) {
	if userID == "" {
		return "", newServiceError(opJoinDataset, "missing_user_id", errMissingUserID)
	}
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return "", newServiceError(opJoinDataset, "empty_code", ErrEmptyInviteCode)
	}
	path, err := validInvitePath(code)
	if err != nil {
		return "", newServiceError(opJoinDataset, "invite_not_found", ErrInviteNotFound)
	}
	invite, err := gateway.GetValue[catalog.Invite](ctx, m.gw, path)
	if err != nil {
		return "", m.failure.record(opJoinDataset, "read_failed", err, zap.String("code", code))
	}
	if invite == nil {
		return "", newServiceError(opJoinDataset, "invite_not_found", ErrInviteNotFound)
	}
	if invite.Expired(m.clock()) {
		return "", newServiceError(opJoinDataset, "invite_expired", ErrInviteExpired)
	}
	previousDatasetID, err := m.datasets.UserDatasetID(ctx, userID)
	if err != nil {
		return "", m.failure.record(opJoinDataset, "read_failed", err, zap.String("user_id", userID))
	}

	updates := map[gateway.Path]gateway.Update{
		datasetMemberPath(invite.DatasetID, userID): gateway.Set(true),
		userDatasetPath(userID):                     gateway.Set(invite.DatasetID),
		path:                                        gateway.Delete(),
	}
	if previousDatasetID != "" && previousDatasetID != invite.DatasetID {
		updates[datasetMemberPath(previousDatasetID, userID)] = gateway.Delete()
	}
	err = m.gw.UpdateMultiple(ctx, updates, gateway.Exists(path))
	if errors.Is(err, gateway.ErrConditionFailed) {
		return "", newServiceError(opJoinDataset, "invite_not_found", ErrInviteNotFound)
	}
	if err != nil {
		return "", m.failure.record(opJoinDataset, "write_failed", err,
			zap.String("user_id", userID),
			zap.String("dataset_id", invite.DatasetID))
	}
	m.logger.Info("dataset joined", zap.String("user_id", userID), zap.String("dataset_id", invite.DatasetID))
	return invite.DatasetID, nil
}

// LeaveDataset removes userID from its dataset.
func (m *Membership) LeaveDataset(ctx context.Context, userID string) error {
	if userID == "" {
		return newServiceError(opLeaveDataset, "missing_user_id", errMissingUserID)
	}
	datasetID, err := m.datasets.UserDatasetID(ctx, userID)
	if err != nil {
		return m.failure.record(opLeaveDataset, "read_failed", err, zap.String("user_id", userID))
	}
	if datasetID == "" {
		return nil
	}
	return m.unbind(ctx, opLeaveDataset, datasetID, userID)
}

// DeleteUserFromDataset removes userID from datasetID. The membership entry is removed before
// the user's pointer, in two steps; a failure in between leaves the user orphaned.
func (m *Membership) DeleteUserFromDataset(ctx context.Context, datasetID, userID string) error {
	if userID == "" {
		return newServiceError(opRemoveMember, "missing_user_id", errMissingUserID)
	}
	if datasetID == "" {
		return newServiceError(opRemoveMember, "missing_dataset_id", errMissingDatasetID)
	}
	return m.unbind(ctx, opRemoveMember, datasetID, userID)
}

func (m *Membership) unbind(ctx context.Context, operation, datasetID, userID string) error {
	if err := m.gw.Delete(ctx, datasetMemberPath(datasetID, userID)); err != nil {
		return m.failure.record(operation, "membership_delete_failed", err,
			zap.String("user_id", userID),
			zap.String("dataset_id", datasetID))
	}
	current, err := m.datasets.UserDatasetID(ctx, userID)
	if err != nil {
		return m.failure.record(operation, "read_failed", err, zap.String("user_id", userID))
	}
	if current != datasetID {
		return nil
	}
	if err := m.gw.Delete(ctx, userDatasetPath(userID)); err != nil {
		return m.failure.record(operation, "pointer_delete_failed", err,
			zap.String("user_id", userID),
			zap.String("dataset_id", datasetID))
	}
	return nil
}

// Resolve returns the dataset userID works in, creating one when the user is unbound or
// orphaned. Reads are attempted up to five times before ErrDatasetUnreachable is returned.
func (m *Membership) Resolve(ctx context.Context, userID string) (string, error) {
	if userID == "" {
		return "", newServiceError(opResolveDataset, "missing_user_id", errMissingUserID)
	}
	var (
		state     MembershipState
		datasetID string
	)
	backoff := retry.WithMaxRetries(resolveAttempts-1, retry.NewConstant(m.retryDelay))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		var readErr error
		state, datasetID, readErr = m.state(ctx, userID)
		if readErr != nil {
			m.logger.Warn("dataset resolution attempt failed", zap.String("user_id", userID), zap.Error(readErr))
			return retry.RetryableError(readErr)
		}
		return nil
	})
	if err != nil {
		return "", m.failure.record(opResolveDataset, "dataset_unreachable", errors.Join(ErrDatasetUnreachable, err),
			zap.String("user_id", userID))
	}
	if state == Bound {
		return datasetID, nil
	}
	return m.SetupUserDataset(ctx, userID)
}

func validInvitePath(code string) (gateway.Path, error) {
	path := invitePath(code)
	if err := path.Validate(); err != nil {
		return "", err
	}
	return path, nil
}

func randomInviteCode() (string, error) {
	alphabetSize := big.NewInt(int64(len(inviteCodeAlphabet)))
	var builder strings.Builder
	builder.Grow(inviteCodeLength)
	for index := 0; index < inviteCodeLength; index++ {
		position, err := rand.Int(rand.Reader, alphabetSize)
		if err != nil {
			return "", err
		}
		builder.WriteByte(inviteCodeAlphabet[position.Int64()])
	}
	return builder.String(), nil
}
