// Package sstv encodes images as Martin M1 slow-scan television audio and
// delivers the result to a TNC over KISS, to a sound card, or to a WAV file.
package sstv
