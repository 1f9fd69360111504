// Package plugin runs optional feature and audio hooks around synthesis.
//
// A plugin is a [Table] of functions. Tables are registered directly with
// [Registry.Add] or loaded from Go plugin files exporting an AxisPlugin
// symbol. The [Dispatcher] calls every registered hook in registration
// order. Each call works on data that can be rolled back: if a hook fails,
// panics or leaves the data invalid, its changes are discarded, the failure
// is logged and returned as a warning, and the remaining plugins still run.
package plugin
