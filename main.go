// Package main serves as the entry point for the ruleindex application.
// It provides a processing pipeline that ingests images of game-rule
// booklets, runs them through AI extraction (OCR, visual description,
// label extraction, embedding generation), and makes the extracted
// content searchable by vector similarity.
package main

import "ruleindex/cmd"

func main() {
	cmd.Execute()
}
