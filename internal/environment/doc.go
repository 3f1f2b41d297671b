// Package environment supplies the environmental snapshot a plan is built
// against: time of day, weather, quiet hours and occupancy.
//
// A snapshot is read once per plan, at creation time. LiveProvider derives
// it from the clock, the configured quiet window and a WeatherCache fed by
// MQTT sensor readings; StaticProvider returns a fixed snapshot for tests
// and the CLI.
package environment
