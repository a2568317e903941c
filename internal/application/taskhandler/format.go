package taskhandler

import (
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/gympoint/academy-hub/internal/domain/shared"
	"github.com/gympoint/academy-hub/pkg/timeutil"
)

var ptBR = message.NewPrinter(language.BrazilianPortuguese)

// formatBRL renders an amount as Brazilian currency, e.g. "R$ 1.234,56".
func formatBRL(m shared.Money) string {
	return ptBR.Sprintf("R$ %.2f", m.Float())
}

// formatDate renders a calendar date as dd/MM/yyyy.
func formatDate(d shared.Date) string {
	return timeutil.FormatCalendarDateBR(d.Time)
}

// formatInstant renders a timestamp as dd/MM/yyyy in loc.
func formatInstant(t time.Time, loc *time.Location) string {
	if loc == nil {
		return timeutil.FormatDateBR(t)
	}
	return t.In(loc).Format(timeutil.BRDateLayout)
}
