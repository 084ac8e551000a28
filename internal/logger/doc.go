// Package logger wraps zap to give the daemon and the console one logging style:
//   - a global sugared logger with a console encoder,
//   - context helpers (ToContext/FromContext/WithName/WithKV) so every component
//     logs under its own name without threading a logger argument around,
//   - level parsing for the YAML config and the --log-level flag.
package logger
