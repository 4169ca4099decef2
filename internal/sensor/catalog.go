package sensor

import "strings"

// Metric describes one metric topic published by the upstream bridge.
type Metric struct {
	// Suffix is the topic path below the Deye prefix, e.g. "ac/l1/voltage".
	Suffix string

	// Name is the human-readable sensor name shown in Home Assistant.
	Name string

	// Unit is the unit of measurement as the upstream bridge reports it.
	// May be empty for unitless metrics.
	Unit string
}

// catalog lists the metric suffixes the upstream deye-inverter-mqtt bridge
// publishes for the common inverter families (string, micro and hybrid).
// Per-phase and per-string metrics are enumerated up to the largest
// supported count (3 phases, 4 PV strings).
var catalog = map[string]Metric{
	"day_energy":   {Suffix: "day_energy", Name: "Production today", Unit: "kWh"},
	"total_energy": {Suffix: "total_energy", Name: "Production total", Unit: "kWh"},

	"uptime":          {Suffix: "uptime", Name: "Uptime", Unit: "minutes"},
	"operating_power": {Suffix: "operating_power", Name: "Operating power", Unit: "W"},
	"radiator_temp":   {Suffix: "radiator_temp", Name: "Radiator temperature", Unit: "°C"},

	"ac/freq":         {Suffix: "ac/freq", Name: "AC frequency", Unit: "Hz"},
	"ac/active_power": {Suffix: "ac/active_power", Name: "AC active power", Unit: "W"},
	"ac/temperature":  {Suffix: "ac/temperature", Name: "AC temperature", Unit: "°C"},

	"ac/daily_energy_bought": {Suffix: "ac/daily_energy_bought", Name: "Daily energy bought", Unit: "kWh"},
	"ac/total_energy_bought": {Suffix: "ac/total_energy_bought", Name: "Total energy bought", Unit: "kWh"},
	"ac/daily_energy_sold":   {Suffix: "ac/daily_energy_sold", Name: "Daily energy sold", Unit: "kWh"},
	"ac/total_energy_sold":   {Suffix: "ac/total_energy_sold", Name: "Total energy sold", Unit: "kWh"},

	"ac/l1/voltage": {Suffix: "ac/l1/voltage", Name: "Phase 1 voltage", Unit: "V"},
	"ac/l1/current": {Suffix: "ac/l1/current", Name: "Phase 1 current", Unit: "A"},
	"ac/l1/power":   {Suffix: "ac/l1/power", Name: "Phase 1 power", Unit: "W"},
	"ac/l2/voltage": {Suffix: "ac/l2/voltage", Name: "Phase 2 voltage", Unit: "V"},
	"ac/l2/current": {Suffix: "ac/l2/current", Name: "Phase 2 current", Unit: "A"},
	"ac/l2/power":   {Suffix: "ac/l2/power", Name: "Phase 2 power", Unit: "W"},
	"ac/l3/voltage": {Suffix: "ac/l3/voltage", Name: "Phase 3 voltage", Unit: "V"},
	"ac/l3/current": {Suffix: "ac/l3/current", Name: "Phase 3 current", Unit: "A"},
	"ac/l3/power":   {Suffix: "ac/l3/power", Name: "Phase 3 power", Unit: "W"},

	"ac/l1/ct/internal": {Suffix: "ac/l1/ct/internal", Name: "Internal CT L1 power", Unit: "W"},
	"ac/l2/ct/internal": {Suffix: "ac/l2/ct/internal", Name: "Internal CT L2 power", Unit: "W"},
	"ac/l3/ct/internal": {Suffix: "ac/l3/ct/internal", Name: "Internal CT L3 power", Unit: "W"},
	"ac/l1/ct/external": {Suffix: "ac/l1/ct/external", Name: "External CT L1 power", Unit: "W"},
	"ac/l2/ct/external": {Suffix: "ac/l2/ct/external", Name: "External CT L2 power", Unit: "W"},
	"ac/l3/ct/external": {Suffix: "ac/l3/ct/external", Name: "External CT L3 power", Unit: "W"},

	"dc/total_power": {Suffix: "dc/total_power", Name: "DC total power", Unit: "W"},

	"dc/pv1/voltage":      {Suffix: "dc/pv1/voltage", Name: "PV1 voltage", Unit: "V"},
	"dc/pv1/current":      {Suffix: "dc/pv1/current", Name: "PV1 current", Unit: "A"},
	"dc/pv1/power":        {Suffix: "dc/pv1/power", Name: "PV1 power", Unit: "W"},
	"dc/pv1/day_energy":   {Suffix: "dc/pv1/day_energy", Name: "PV1 production today", Unit: "kWh"},
	"dc/pv1/total_energy": {Suffix: "dc/pv1/total_energy", Name: "PV1 production total", Unit: "kWh"},
	"dc/pv2/voltage":      {Suffix: "dc/pv2/voltage", Name: "PV2 voltage", Unit: "V"},
	"dc/pv2/current":      {Suffix: "dc/pv2/current", Name: "PV2 current", Unit: "A"},
	"dc/pv2/power":        {Suffix: "dc/pv2/power", Name: "PV2 power", Unit: "W"},
	"dc/pv2/day_energy":   {Suffix: "dc/pv2/day_energy", Name: "PV2 production today", Unit: "kWh"},
	"dc/pv2/total_energy": {Suffix: "dc/pv2/total_energy", Name: "PV2 production total", Unit: "kWh"},
	"dc/pv3/voltage":      {Suffix: "dc/pv3/voltage", Name: "PV3 voltage", Unit: "V"},
	"dc/pv3/current":      {Suffix: "dc/pv3/current", Name: "PV3 current", Unit: "A"},
	"dc/pv3/power":        {Suffix: "dc/pv3/power", Name: "PV3 power", Unit: "W"},
	"dc/pv3/day_energy":   {Suffix: "dc/pv3/day_energy", Name: "PV3 production today", Unit: "kWh"},
	"dc/pv3/total_energy": {Suffix: "dc/pv3/total_energy", Name: "PV3 production total", Unit: "kWh"},
	"dc/pv4/voltage":      {Suffix: "dc/pv4/voltage", Name: "PV4 voltage", Unit: "V"},
	"dc/pv4/current":      {Suffix: "dc/pv4/current", Name: "PV4 current", Unit: "A"},
	"dc/pv4/power":        {Suffix: "dc/pv4/power", Name: "PV4 power", Unit: "W"},
	"dc/pv4/day_energy":   {Suffix: "dc/pv4/day_energy", Name: "PV4 production today", Unit: "kWh"},
	"dc/pv4/total_energy": {Suffix: "dc/pv4/total_energy", Name: "PV4 production total", Unit: "kWh"},

	"battery/soc":             {Suffix: "battery/soc", Name: "Battery SOC", Unit: "%"},
	"battery/voltage":         {Suffix: "battery/voltage", Name: "Battery voltage", Unit: "V"},
	"battery/current":         {Suffix: "battery/current", Name: "Battery current", Unit: "A"},
	"battery/power":           {Suffix: "battery/power", Name: "Battery power", Unit: "W"},
	"battery/temperature":     {Suffix: "battery/temperature", Name: "Battery temperature", Unit: "°C"},
	"battery/daily_charge":    {Suffix: "battery/daily_charge", Name: "Daily battery charge", Unit: "kWh"},
	"battery/daily_discharge": {Suffix: "battery/daily_discharge", Name: "Daily battery discharge", Unit: "kWh"},
	"battery/total_charge":    {Suffix: "battery/total_charge", Name: "Total battery charge", Unit: "kWh"},
	"battery/total_discharge": {Suffix: "battery/total_discharge", Name: "Total battery discharge", Unit: "kWh"},
}

// Lookup returns the catalog entry for a metric suffix.
//
// Returns:
//   - Metric: The catalog entry
//   - bool: false if the suffix is not a known metric
func Lookup(suffix string) (Metric, bool) {
	m, ok := catalog[suffix]
	return m, ok
}

// Describe returns a Metric for any suffix. Known suffixes come from the
// catalog; unknown ones get a humanised name derived from the topic and
// no unit.
func Describe(suffix string) Metric {
	if m, ok := catalog[suffix]; ok {
		return m
	}
	return Metric{
		Suffix: suffix,
		Name:   humanise(suffix),
	}
}

// humanise turns a topic suffix into a readable sensor name.
// Example: "micro/grid_voltage" -> "Micro grid voltage".
func humanise(suffix string) string {
	s := strings.ReplaceAll(suffix, "/", " ")
	s = strings.ReplaceAll(s, "_", " ")
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
