package payout

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"airpool/internal/apperr"
	"airpool/internal/logger"
	"airpool/internal/payment"
	"airpool/internal/user"
	"airpool/internal/wallet"
)

// Service is the driver-payout surface: reserving a withdrawal
// against the wallet, moving it to the driver's connected account,
// and onboarding that account in the first place. The Payout stays
// in StatusProcessing until WebhookReconciler observes the PSP's
// transfer.created/payout.paid/payout.failed events.
type Service interface {
	Withdraw(ctx context.Context, userID primitive.ObjectID, req WithdrawRequest) (*Payout, error)
	List(ctx context.Context, userID primitive.ObjectID, page, limit int) ([]Payout, int64, error)
	ConnectBank(ctx context.Context, userID primitive.ObjectID) (*ConnectBankResponse, error)
	BankStatus(ctx context.Context, userID primitive.ObjectID) (*BankStatusResponse, error)
}

type service struct {
	repo    Repository
	wallets wallet.Service
	users   user.Repository
	gateway payment.Gateway
}

func NewService(repo Repository, wallets wallet.Service, users user.Repository, gateway payment.Gateway) Service {
	return &service{repo: repo, wallets: wallets, users: users, gateway: gateway}
}

func (s *service) Withdraw(ctx context.Context, userID primitive.ObjectID, req WithdrawRequest) (*Payout, error) {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, apperr.NotFound("user not found")
	}
	if u.ConnectedPayoutAccountID == "" {
		return nil, apperr.Validation("connect a bank account before withdrawing")
	}

	tx, err := s.wallets.ReserveWithdrawal(ctx, userID, req.Amount, "driver withdrawal")
	if err != nil {
		return nil, err
	}

	p, err := s.repo.Create(ctx, &Payout{
		UserID:        userID,
		WalletID:      tx.WalletID,
		Amount:        req.Amount,
		Method:        MethodStandard,
		TransactionID: tx.ID,
	})
	if err != nil {
		if _, ferr := s.wallets.FailWithdrawal(ctx, tx.ID); ferr != nil {
			logger.Error("payout: failed to release withdrawal reservation", "txId", tx.ID.Hex(), "err", ferr)
		}
		return nil, apperr.Transient("failed to record payout", err)
	}

	transfer, err := s.gateway.CreateTransfer(ctx, req.Amount, tx.Currency, u.ConnectedPayoutAccountID, "withdrawal "+p.ID.Hex())
	if err != nil {
		if _, ferr := s.wallets.FailWithdrawal(ctx, tx.ID); ferr != nil {
			logger.Error("payout: failed to release withdrawal reservation", "txId", tx.ID.Hex(), "err", ferr)
		}
		if merr := s.repo.MarkFailed(ctx, p.ID, err.Error()); merr != nil {
			logger.Error("payout: failed to mark payout failed", "payoutId", p.ID.Hex(), "err", merr)
		}
		return nil, apperr.Payment("failed to initiate transfer to connected account")
	}
	if err := s.repo.AttachTransfer(ctx, p.ID, transfer.ID); err != nil {
		logger.Error("payout: failed to attach transfer id", "payoutId", p.ID.Hex(), "err", err)
	}

	po, err := s.gateway.CreatePayout(ctx, req.Amount, tx.Currency, u.ConnectedPayoutAccountID)
	if err != nil {
		// Transfer landed in the connected account; the PSP payout
		// leg failed to initiate synchronously. Leave the record in
		// StatusProcessing and let a later payout.paid/payout.failed
		// event (or a manual retry) resolve it.
		logger.Error("payout: payout initiation failed after transfer", "payoutId", p.ID.Hex(), "err", err)
		return s.repo.FindByID(ctx, p.ID)
	}
	if err := s.repo.MarkProcessing(ctx, p.ID, po.ID); err != nil {
		logger.Error("payout: failed to record psp payout id", "payoutId", p.ID.Hex(), "err", err)
	}
	return s.repo.FindByID(ctx, p.ID)
}

func (s *service) List(ctx context.Context, userID primitive.ObjectID, page, limit int) ([]Payout, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.repo.ListByUser(ctx, userID, page, limit)
}

func (s *service) ConnectBank(ctx context.Context, userID primitive.ObjectID) (*ConnectBankResponse, error) {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, apperr.NotFound("user not found")
	}
	account, err := s.gateway.CreateConnectedAccount(ctx, u.Email)
	if err != nil {
		return nil, apperr.Payment("failed to create connected account")
	}
	if err := s.users.UpdateConnectedAccount(ctx, userID, account.ID); err != nil {
		return nil, apperr.Transient("failed to save connected account", err)
	}
	return &ConnectBankResponse{AccountID: account.ID, OnboardingURL: account.OnboardingURL}, nil
}

func (s *service) BankStatus(ctx context.Context, userID primitive.ObjectID) (*BankStatusResponse, error) {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, apperr.NotFound("user not found")
	}
	if u.ConnectedPayoutAccountID == "" {
		return &BankStatusResponse{Connected: false}, nil
	}
	account, err := s.gateway.RetrieveConnectedAccount(ctx, u.ConnectedPayoutAccountID)
	if err != nil {
		return nil, apperr.Payment("failed to retrieve connected account status")
	}
	return &BankStatusResponse{Connected: true, PayoutsEnabled: account.PayoutsEnabled}, nil
}
