package formance

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strconv"

	"challenge-goals-go/internal/models"
	"challenge-goals-go/internal/store"

	v3 "github.com/formancehq/formance-sdk-go/v3"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/operations"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/sdkerrors"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/shared"
	"go.uber.org/zap"
)

// Compile-time check: *Service must satisfy store.UserDirectory.
var _ store.UserDirectory = (*Service)(nil)

// pointsAsset is the Formance UMN for reward points, which have no decimals.
const pointsAsset = "PTS/0"

const numscriptRewardCredit = `vars {
  asset $asset
  number $amount
  account $user_account
  string $reference
  string $user_id
}

send [$asset $amount] (
  source = @world
  destination = $user_account
)

set_tx_meta("reference", $reference)
set_tx_meta("user_id", $user_id)
set_tx_meta("type", "reward_credit")
`

// Service mirrors reward point credits into a Formance Stack ledger. Users and
// the authoritative balance stay in the local directory it wraps.
type Service struct {
	store.UserDirectory
	client *v3.Formance
	ledger string
}

// NewService connects to the stack and creates the ledger if it doesn't already exist.
func NewService(ctx context.Context, cfg models.FormanceConfig, local store.UserDirectory) (*Service, error) {
	if cfg.StackURL == "" || cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("formance config requires StackURL, ClientID, and ClientSecret")
	}
	if local == nil {
		return nil, fmt.Errorf("formance points mirror requires a local user directory")
	}
	if cfg.LedgerName == "" {
		cfg.LedgerName = "challenge-rewards"
	}

	zap.L().Info("Connecting to Formance Stack",
		zap.String("stack_url", cfg.StackURL),
		zap.String("ledger", cfg.LedgerName))

	client := v3.New(
		v3.WithServerURL(cfg.StackURL),
		v3.WithSecurity(shared.Security{
			ClientID:     v3.Pointer(cfg.ClientID),
			ClientSecret: v3.Pointer(cfg.ClientSecret),
		}),
	)

	svc := &Service{UserDirectory: local, client: client, ledger: cfg.LedgerName}
	if err := svc.ensureLedger(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure ledger exists: %w", err)
	}

	zap.L().Info("Formance points mirror initialized", zap.String("ledger", cfg.LedgerName))
	return svc, nil
}

func (s *Service) ensureLedger(ctx context.Context) error {
	_, err := s.client.Ledger.V2.CreateLedger(ctx, operations.V2CreateLedgerRequest{
		Ledger: s.ledger,
		V2CreateLedgerRequest: shared.V2CreateLedgerRequest{
			Metadata: map[string]string{
				"application": "challenge-goals",
			},
		},
	})
	if err != nil {
		if hasErrorCode(err, shared.V2ErrorsEnumLedgerAlreadyExists) {
			zap.L().Info("Ledger already exists", zap.String("ledger", s.ledger))
			return nil
		}
		return err
	}
	zap.L().Info("Ledger created", zap.String("ledger", s.ledger))
	return nil
}

// CreditPoints posts the credit to Formance under the credit reference, then
// applies it locally. A reference Formance already holds counts as posted, so
// a retry after a local failure finishes the job without posting twice.
func (s *Service) CreditPoints(ctx context.Context, userId string, points int, reference string) error {
	if points <= 0 {
		return fmt.Errorf("points must be positive, got %d", points)
	}

	_, err := s.client.Ledger.V2.CreateTransaction(ctx, operations.V2CreateTransactionRequest{
		Ledger: s.ledger,
		V2PostTransaction: shared.V2PostTransaction{
			Reference: strPtr(reference),
			Script: &shared.V2PostTransactionScript{
				Plain: numscriptRewardCredit,
				Vars: map[string]string{
					"asset":        pointsAsset,
					"amount":       strconv.Itoa(points),
					"user_account": userAccount(userId),
					"reference":    reference,
					"user_id":      userId,
				},
			},
		},
	})
	if err != nil && !hasErrorCode(err, shared.V2ErrorsEnumConflict) {
		return fmt.Errorf("error posting reward credit to formance: %w", err)
	}
	if err != nil {
		zap.L().Debug("Reward credit already in Formance", zap.String("reference", reference))
	}

	return s.UserDirectory.CreditPoints(ctx, userId, points, reference)
}

// PointBalance returns the user's point balance as held by Formance.
func (s *Service) PointBalance(ctx context.Context, userId string) (int64, error) {
	resp, err := s.client.Ledger.V2.GetAccount(ctx, operations.V2GetAccountRequest{
		Ledger:  s.ledger,
		Address: userAccount(userId),
		Expand:  v3.Pointer("volumes"),
	})
	if err != nil {
		if hasErrorCode(err, shared.V2ErrorsEnumNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("error reading formance account: %w", err)
	}

	bal := volumeBalance(resp.V2AccountResponse.Data.Volumes, pointsAsset)
	if bal == nil {
		return 0, nil
	}
	if !bal.IsInt64() {
		return 0, fmt.Errorf("point balance for %s overflows int64", userId)
	}
	return bal.Int64(), nil
}

// VerifyUser compares the local balance with the Formance balance.
func (s *Service) VerifyUser(ctx context.Context, userId string) (bool, error) {
	user, err := s.UserDirectory.GetUser(ctx, userId)
	if err != nil {
		return false, err
	}
	remote, err := s.PointBalance(ctx, userId)
	if err != nil {
		return false, err
	}
	if remote != user.PointBalance {
		zap.L().Warn("Point balance mismatch",
			zap.String("user_id", userId),
			zap.Int64("local", user.PointBalance),
			zap.Int64("formance", remote))
		return false, nil
	}
	return true, nil
}

// ---------- helpers ----------

func userAccount(userId string) string {
	return "users:" + userId + ":points"
}

func hasErrorCode(err error, code shared.V2ErrorsEnum) bool {
	var apiErr *sdkerrors.V2ErrorResponse
	return errors.As(err, &apiErr) && apiErr.ErrorCode == code
}

// volumeBalance extracts the balance for a specific asset from volumes.
func volumeBalance(vols map[string]shared.V2Volume, asset string) *big.Int {
	vol, ok := vols[asset]
	if !ok {
		return nil
	}
	if vol.Balance != nil {
		return vol.Balance
	}
	if vol.Input == nil {
		return nil
	}
	result := new(big.Int).Set(vol.Input)
	if vol.Output != nil {
		result.Sub(result, vol.Output)
	}
	return result
}

func strPtr(s string) *string { return &s }
