package detector

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/trendzbr/trendwatch/internal/models"
)

// Message bodies keep the original bot's Portuguese wording so existing
// subscribers see no change.

const maxOptionsInMessage = 5

func formatNewPool(pool *models.Pool, now time.Time) string {
	var options strings.Builder
	for i, opt := range pool.Options {
		if i >= maxOptionsInMessage {
			options.WriteString(fmt.Sprintf("  - ... e mais %d opcoes\n", len(pool.Options)-maxOptionsInMessage))
			break
		}
		options.WriteString(fmt.Sprintf("  - %s: Sim %.0f%% (%.2fx) / Nao %.0f%% (%.2fx)\n",
			opt.Name, opt.YesPct, opt.YesMultiplier, opt.NoPct, opt.NoMultiplier))
	}

	endInfo := ""
	if pool.EndDate != "" {
		if endAt, ok := pool.EndTime(); ok {
			endInfo = fmt.Sprintf("\n📅 Encerramento em: %s", formatTimeRemaining(endAt, now))
		} else {
			endInfo = fmt.Sprintf("\n📅 Encerramento: %s", pool.EndDate)
		}
	}

	return fmt.Sprintf(
		"🆕 NOVO MERCADO\n\n"+
			"📊 %s\n"+
			"📁 Categoria: %s"+
			"%s\n\n"+
			"Opcoes:\n%s\n"+
			"🔗 %s",
		pool.Title, pool.Category, endInfo, options.String(), pool.URL)
}

func formatNewOption(pool *models.Pool, opt *models.MarketOption) string {
	return fmt.Sprintf(
		"🆕 NOVA OPCAO EM MERCADO\n\n"+
			"📊 %s\n"+
			"👤 %s\n"+
			"Sim %.0f%% (%.2fx) / Nao %.0f%% (%.2fx)\n\n"+
			"🔗 %s",
		pool.Title, opt.Name,
		opt.YesPct, opt.YesMultiplier, opt.NoPct, opt.NoMultiplier,
		pool.URL)
}

func formatOddsChange(pool *models.Pool, opt *models.MarketOption, prev models.Observation, changePP float64) string {
	direction := "⬆️"
	if changePP < 0 {
		direction = "⬇️"
	}
	return fmt.Sprintf(
		"📈 MUDANCA DE ODDS\n\n"+
			"📊 %s\n"+
			"👤 %s\n\n"+
			"Antes: Sim %.0f%% (%.2fx) / Nao %.0f%% (%.2fx)\n"+
			"Agora: Sim %.0f%% (%.2fx) / Nao %.0f%% (%.2fx)\n"+
			"Variacao: %s %+.1fpp\n\n"+
			"🔗 %s",
		pool.Title, opt.Name,
		prev.YesPct, prev.YesMultiplier, prev.NoPct, prev.NoMultiplier,
		opt.YesPct, opt.YesMultiplier, opt.NoPct, opt.NoMultiplier,
		direction, changePP,
		pool.URL)
}

func formatClosingSoon(pool *models.Pool, endAt, now time.Time) string {
	// Top options by yes percentage, ties broken by encounter order.
	ranked := make([]models.MarketOption, len(pool.Options))
	copy(ranked, pool.Options)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].YesPct > ranked[j].YesPct
	})

	var status strings.Builder
	for i, opt := range ranked {
		if i >= maxOptionsInMessage {
			break
		}
		status.WriteString(fmt.Sprintf("  - %s: %.0f%% (Sim %.2fx)\n",
			opt.Name, opt.YesPct, opt.YesMultiplier))
	}

	return fmt.Sprintf(
		"⏰ MERCADO FECHANDO EM BREVE\n\n"+
			"📊 %s\n"+
			"📁 Categoria: %s\n"+
			"⏳ Fecha em: ~%s\n\n"+
			"Situacao atual:\n%s\n"+
			"🔗 %s",
		pool.Title, pool.Category, formatTimeRemaining(endAt, now), status.String(), pool.URL)
}

// windowLabel renders a closing window boundary as its ledger key suffix
// and user-facing tag, e.g. "6h".
func windowLabel(hours int) string {
	return fmt.Sprintf("%dh", hours)
}

// formatTimeRemaining renders the time until endAt as a short
// human-readable string.
func formatTimeRemaining(endAt, now time.Time) string {
	total := int(endAt.Sub(now).Seconds())
	if total <= 0 {
		return "ja encerrado"
	}

	days := total / 86400
	hours := (total % 86400) / 3600
	minutes := (total % 3600) / 60

	var parts []string
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if minutes > 0 && days == 0 {
		parts = append(parts, fmt.Sprintf("%dmin", minutes))
	}
	if len(parts) == 0 {
		return "< 1min"
	}
	return strings.Join(parts, " ")
}
