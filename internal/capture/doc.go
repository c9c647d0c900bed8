// Package capture provides the raw YUYV frame sources that feed the
// encoder: a synthetic test-pattern generator and a raw file replayer.
package capture
