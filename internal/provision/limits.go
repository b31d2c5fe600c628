// AngelaMos | 2026
// limits.go

package provision

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/lumennodes/portal/internal/catalog"
	"github.com/lumennodes/portal/internal/config"
	"github.com/lumennodes/portal/internal/panel"
)

var leadingQuantity = regexp.MustCompile(`^\s*(\d+(?:\.\d+)?)\s*([a-zA-Z]*)`)

var (
	perKB = decimal.NewFromInt(1).Div(decimal.NewFromInt(1024))
	perMB = decimal.NewFromInt(1)
	perGB = decimal.NewFromInt(1024)
	perTB = decimal.NewFromInt(1024 * 1024)
)

// Size units in megabytes. A bare number is taken as GB.
var sizeUnits = map[string]decimal.Decimal{
	"K": perKB, "KB": perKB, "KIB": perKB,
	"M": perMB, "MB": perMB, "MIB": perMB,
	"": perGB, "G": perGB, "GB": perGB, "GIB": perGB,
	"T": perTB, "TB": perTB, "TIB": perTB,
}

// megabytes reads strings like "6 GB", "1GB DDR4" or "512MB". Unknown
// units, and sizes under one megabyte, yield fallback.
func megabytes(display string, fallback int) int {
	m := leadingQuantity.FindStringSubmatch(display)
	if m == nil {
		return fallback
	}

	qty, err := decimal.NewFromString(m[1])
	if err != nil || !qty.IsPositive() {
		return fallback
	}

	factor, ok := sizeUnits[strings.ToUpper(m[2])]
	if !ok {
		return fallback
	}

	mb := int(qty.Mul(factor).IntPart())
	if mb <= 0 {
		return fallback
	}
	return mb
}

// cpuPercent passes "150%" through as 150 and reads "4 vCores" as 400.
func cpuPercent(display string, fallback int) int {
	m := leadingQuantity.FindStringSubmatch(display)
	if m == nil {
		return fallback
	}

	qty, err := decimal.NewFromString(m[1])
	if err != nil || !qty.IsPositive() {
		return fallback
	}

	switch strings.ToUpper(m[2]) {
	case "":
	case "CORE", "CORES", "VCORE", "VCORES", "VCPU", "VCPUS":
		qty = qty.Mul(decimal.NewFromInt(100))
	default:
		return fallback
	}
	return int(qty.IntPart())
}

// ServerParams maps a product onto panel limits, falling back to the
// configured template and resource defaults.
func ServerParams(
	p *catalog.Product,
	defaults config.PanelConfig,
	name string,
	panelUserID int64,
) panel.CreateServerParams {
	nest := defaults.DefaultNestID
	if p.NestID != nil && *p.NestID > 0 {
		nest = *p.NestID
	}
	egg := defaults.DefaultEggID
	if p.EggID != nil && *p.EggID > 0 {
		egg = *p.EggID
	}

	return panel.CreateServerParams{
		Name:       name,
		UserID:     panelUserID,
		NestID:     nest,
		EggID:      egg,
		MemoryMB:   megabytes(p.RAM, defaults.DefaultMemoryMB),
		CPU:        cpuPercent(p.CPU, defaults.DefaultCPU),
		DiskMB:     megabytes(p.Disk, defaults.DefaultDiskMB),
		LocationID: defaults.DefaultLocationID,
	}
}
