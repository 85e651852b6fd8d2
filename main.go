package main

import (
	"fmt"
)

func main() {
	printWelcome()
	Execute()
}

func printWelcome() {
	// Cyan ASCII art
	fmt.Println("\033[36m")
	fmt.Println("   ___ ___ _  _ ___  ___    _   ")
	fmt.Println("  / __|_ _| \\| |   \\| _ \\  /_\\  ")
	fmt.Println(" | (__ | || .` | |) |   / / _ \\ ")
	fmt.Println("  \\___|___|_|\\_|___/|_|_\\/_/ \\_\\")
	fmt.Println("\033[0m")
	fmt.Println("\033[33m   cindra mutable-chain miner v1.0 (Educational)\033[0m")
	fmt.Println("\033[90m   (c) 2026 Università del Salento\033[0m")
}
