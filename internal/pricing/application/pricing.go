package application

import (
	"context"
)

// PricingService 定价门面服务。
type PricingService struct {
	Command *PricingCommandService
	Query   *PricingQueryService
}

// NewPricingService 构造函数。
func NewPricingService(command *PricingCommandService, query *PricingQueryService) *PricingService {
	return &PricingService{
		Command: command,
		Query:   query,
	}
}

// --- Command Facade ---

func (s *PricingService) PriceZeroCoupon(ctx context.Context, cmd PriceZeroCouponCommand) (*ZeroCouponResult, error) {
	return s.Command.PriceZeroCoupon(ctx, cmd)
}

func (s *PricingService) PriceOption(ctx context.Context, cmd PriceOptionCommand) (*OptionPricingResult, error) {
	return s.Command.PriceOption(ctx, cmd)
}

func (s *PricingService) PriceAutocall(ctx context.Context, cmd PriceAutocallCommand) (*AutocallPricingResult, error) {
	return s.Command.PriceAutocall(ctx, cmd)
}

func (s *PricingService) Convergence(ctx context.Context, cmd ConvergenceCommand) (*ConvergenceResult, error) {
	return s.Command.Convergence(ctx, cmd)
}
