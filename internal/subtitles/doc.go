// Package subtitles implements the subtitle stages of the video pipeline:
// burned-in caption detection via frame OCR, transcript generation via a
// speech-to-text engine, and SRT burn-in using ffmpeg's subtitles filter.
package subtitles
