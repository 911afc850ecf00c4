// Package logx configures proxybot's structured logging.
//
// This repo uses a small wrapper (logx.Logger) on top of zerolog to keep:
//   - Console output readable (short timestamp + short caller)
//   - File output JSON-structured and size-rotated (lumberjack)
//   - Optional Telegram sink (min-level + rate limiting)
package logx
