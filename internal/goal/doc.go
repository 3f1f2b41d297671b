// Package goal resolves free-text goals ("movie time", "I'm heading out")
// to a goal type that selects a plan template.
//
// Classification is pluggable through the Classifier interface. The
// built-in KeywordClassifier is a case-insensitive substring match over an
// ordered keyword list; anything unmatched is TypeCustom, which the
// orchestrator turns into a synthesised plan.
package goal
