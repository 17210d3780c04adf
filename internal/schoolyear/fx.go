package schoolyear

import (
	"github.com/plantelhq/plantel/internal/config"
	"github.com/plantelhq/plantel/internal/schoolyear/domain"
	"github.com/plantelhq/plantel/internal/schoolyear/repository"
	"github.com/plantelhq/plantel/internal/schoolyear/service"
	"go.uber.org/fx"
)

var Module = fx.Module("schoolyear",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
	fx.Provide(ProvideMonthSource),
)

// ProvideMonthSource picks the generator month set. The fixed list stays
// the default until the calendar-backed set is confirmed as intended.
func ProvideMonthSource(cfg *config.Config) domain.MonthSource {
	if cfg.Billing.GeneratorMonths == config.MonthSourceCalendar {
		return domain.CalendarMonths{}
	}
	return domain.FixedMonths{}
}
