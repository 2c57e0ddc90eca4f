//go:build gldebug

package gpu

// DebugChecks enables GL error queries after every call and the integrity
// assertions of the arena, atlas and batching code.
const DebugChecks = true
