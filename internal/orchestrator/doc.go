// Package orchestrator turns a goal into an executable plan.
//
// CreatePlan validates and classifies the goal text, reads the environment
// once, and hands the result to BuildPlan, which:
//
//  1. instantiates the goal type's template, or synthesises steps from
//     keywords in the text for custom goals;
//  2. applies the context adjustments (rain closes windows on goodnight and
//     leaving_home, cold mornings boost the wake_up thermostat target,
//     quiet hours cap ambiance brightness) in that fixed order;
//  3. enriches every step through the specialist registry.
//
// Adjustments never reorder or remove steps. A step naming a specialist
// that is not registered fails the build with ErrUnknownSpecialist.
package orchestrator
