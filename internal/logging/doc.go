// Package logging builds zerolog loggers from configuration and carries them,
// together with the run identifier, through a context.Context.
package logging
