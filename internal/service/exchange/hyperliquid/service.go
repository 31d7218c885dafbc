package hyperliquid

import "github.com/KNICEX/trader-watcher/internal/service/exchange"

var _ exchange.Service = (*Service)(nil)

type Service struct {
	accountSvc *AccountService
}

func NewService(cli *Client) *Service {
	return &Service{
		accountSvc: NewAccountService(cli),
	}
}

func (s *Service) AccountService() exchange.AccountService {
	return s.accountSvc
}

func (s *Service) HistoryService() exchange.HistoryService {
	return s.accountSvc
}
