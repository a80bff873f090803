//go:build setab_debug

package debug

func init() { Enabled = true }
