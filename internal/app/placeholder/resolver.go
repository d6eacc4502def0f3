// Package placeholder answers the pull-only %mythicforge_<param>% text
// placeholders the game server renders in scoreboards and chat.
package placeholder

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"mythicforge/internal/app/cooldown"
	"mythicforge/internal/app/ports"
	"mythicforge/internal/domain/forge"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const Identifier = "mythicforge"

const cooldownPrefix = "forge_cooldown_"

type SessionReader interface {
	Session(owner forge.PlayerID) (forge.Session, bool)
}

type Resolver struct {
	Sessions     SessionReader
	Cooldowns    cooldown.Policy
	Economy      ports.Economy
	TickInterval time.Duration
	Scale        int32
	Lang         language.Tag
	Now          func() time.Time
}

func (r Resolver) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// Resolve returns the value of one parameter for owner. Parameter names are
// case-insensitive; the npc id in forge_cooldown_<npcId> keeps its case.
// Unknown parameters report ok=false.
func (r Resolver) Resolve(ctx context.Context, owner forge.PlayerID, raw string) (string, bool, error) {
	raw = strings.TrimSpace(raw)
	param := strings.ToLower(raw)
	sess, hasSession := r.Sessions.Session(owner)

	switch {
	case param == "forge_state":
		if !hasSession {
			return "none", true, nil
		}
		return string(sess.State), true, nil
	case param == "forge_progress":
		if !hasSession {
			return "0", true, nil
		}
		return fmt.Sprintf("%d", int(sess.ProgressFraction()*100)), true, nil
	case param == "forge_recipe":
		if !hasSession {
			return "", true, nil
		}
		return sess.Recipe.DisplayName(), true, nil
	case param == "forge_remaining":
		if !hasSession || sess.State.Terminal() {
			return "Done", true, nil
		}
		return FormatDuration(time.Duration(sess.RemainingTicks()) * r.interval()), true, nil
	case len(raw) > len(cooldownPrefix) && strings.EqualFold(raw[:len(cooldownPrefix)], cooldownPrefix):
		npcID := forge.NpcID(raw[len(cooldownPrefix):])
		remaining, onCooldown, err := r.Cooldowns.Remaining(ctx, owner, npcID, r.now())
		if err != nil {
			return "", false, err
		}
		if !onCooldown {
			return "Ready", true, nil
		}
		return FormatDuration(time.Duration(remaining) * time.Second), true, nil
	case param == "balance":
		if r.Economy == nil {
			return "", false, nil
		}
		bal, err := r.Economy.Balance(ctx, owner)
		if err != nil {
			return "", false, err
		}
		return r.formatAmount(bal), true, nil
	default:
		return "", false, nil
	}
}

var tokenPattern = regexp.MustCompile(`%` + Identifier + `_([a-zA-Z0-9_:-]+)%`)

// Expand replaces every known %mythicforge_<param>% token in text. Unknown
// tokens are left as written.
func (r Resolver) Expand(ctx context.Context, owner forge.PlayerID, text string) (string, error) {
	var firstErr error
	out := tokenPattern.ReplaceAllStringFunc(text, func(token string) string {
		m := tokenPattern.FindStringSubmatch(token)
		value, ok, err := r.Resolve(ctx, owner, m[1])
		if err != nil && firstErr == nil {
			firstErr = err
		}
		if !ok {
			return token
		}
		return value
	})
	return out, firstErr
}

// formatAmount renders bal with the locale's separators without going
// through float64.
func (r Resolver) formatAmount(bal decimal.Decimal) string {
	scale := r.Scale
	if scale < 0 {
		scale = 0
	}
	p := message.NewPrinter(r.lang())
	groupSep := strings.TrimSuffix(strings.TrimPrefix(p.Sprintf("%d", 1000), "1"), "000")
	decimalSep := strings.TrimSuffix(strings.TrimPrefix(p.Sprintf("%.1f", 0.5), "0"), "5")

	fixed := bal.StringFixed(scale)
	var b strings.Builder
	if strings.HasPrefix(fixed, "-") {
		b.WriteByte('-')
		fixed = fixed[1:]
	}
	whole, frac, _ := strings.Cut(fixed, ".")
	for i := 0; i < len(whole); i++ {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteString(groupSep)
		}
		b.WriteByte(whole[i])
	}
	if frac != "" {
		b.WriteString(decimalSep)
		b.WriteString(frac)
	}
	return b.String()
}

func (r Resolver) interval() time.Duration {
	if r.TickInterval <= 0 {
		return time.Second
	}
	return r.TickInterval
}

func (r Resolver) lang() language.Tag {
	if r.Lang == language.Und {
		return language.English
	}
	return r.Lang
}

// FormatDuration renders d as "1h 2m 3s". Negative durations read as
// "Refreshing...".
func FormatDuration(d time.Duration) string {
	if d < 0 {
		return "Refreshing..."
	}
	total := int64(d / time.Second)
	return fmt.Sprintf("%dh %dm %ds", total/3600, (total/60)%60, total%60)
}
