package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

// ANSI Colors
const (
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorCyan   = "\033[36m"
	ColorReset  = "\033[0m"
	ColorBold   = "\033[1m"
	ColorRed    = "\033[31m"
)

var rootCmd = &cobra.Command{
	Use:   "cindra",
	Short: "cindra mutable-chain miner CLI",
	Long:  `Command-line interface for the cindra miner (educational project).`,
}

var (
	listenFlag    string
	apiListenFlag string
	apiPortFlag   int
	gvsFlag       string
	expectFlag    int64
	blockCapFlag  int
)

func Execute() {
	rootCmd.SetHelpFunc(printUsage)

	if len(os.Args) < 2 {
		printUsage(rootCmd, nil)
		os.Exit(0)
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func printUsage(cmd *cobra.Command, args []string) {
	fmt.Println(ColorGreen + `
   _____ _____ _   _ _____  _____
  / ____|_   _| \ | |  __ \|  __ \     /\
 | |      | | |  \| | |  | | |__) |   /  \
 | |      | | | . ` + "`" + ` | |  | |  _  /   / /\ \
 | |____ _| |_| |\  | |__| | | \ \  / ____ \
  \_____|_____|_| \_|_____/|_|  \_\/_/    \_\
` + ColorReset)
	fmt.Println(ColorBold + "   cindra mutable-chain miner v1.0" + ColorReset)
	fmt.Println()

	fmt.Println(ColorBold + "USAGE:" + ColorReset)
	fmt.Println("  cindra <command> [flags]")
	fmt.Println()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 4, ' ', 0)

	fmt.Fprintln(w, ColorYellow+"serve"+ColorReset+"\tStart the miner (ingress, assembly, cleaning scheduler, status API).")
	fmt.Fprintln(w, "\t"+ColorCyan+"Flags:"+ColorReset+" --listen, --api-listen, --api-port, --gvs, --expect, --block-cap")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, ColorYellow+"gv new"+ColorReset+"\tGenerate a BIP-39 mnemonic and derive a recoverable GV secret.")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, ColorYellow+"stats"+ColorReset+"\tRead-only store introspection: block count, live-tx count, pruned-node count.")

	w.Flush()
	fmt.Println()
}

func init() {
	var serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Start the miner service",
		Run:   runServe,
	}
	serveCmd.Flags().StringVar(&listenFlag, "listen", defaultListenAddr, "Ingress listen address")
	serveCmd.Flags().StringVar(&apiListenFlag, "api-listen", "0.0.0.0", "Status API bind address")
	serveCmd.Flags().IntVar(&apiPortFlag, "api-port", 8080, "Status API port")
	serveCmd.Flags().StringVar(&gvsFlag, "gvs", "", "Miner's own GV secret, used to sign synthesised summary transactions")
	serveCmd.Flags().Int64Var(&expectFlag, "expect", 0, "Exit once this many transactions have been mined (0 = serve indefinitely)")
	serveCmd.Flags().IntVar(&blockCapFlag, "block-cap", defaultBlockCap, "Block count after which cleaning falls back to the ring-buffer scan window")
	rootCmd.AddCommand(serveCmd)

	var gvCmd = &cobra.Command{
		Use:   "gv",
		Short: "Generator-verifier secret helpers",
	}
	rootCmd.AddCommand(gvCmd)

	var gvNewCmd = &cobra.Command{
		Use:   "new",
		Short: "Generate a new mnemonic-backed GV secret",
		Run:   runGVNew,
	}
	gvCmd.AddCommand(gvNewCmd)

	var statsCmd = &cobra.Command{
		Use:   "stats",
		Short: "Print store statistics",
		Run:   runStats,
	}
	rootCmd.AddCommand(statsCmd)
}

func runServe(cmd *cobra.Command, args []string) {
	if gvsFlag == "" {
		gvsFlag = "cindra-default-gvs"
		PrintWarning("no --gvs supplied, using a fixed default (not suitable for real deployments)")
	}

	m, err := NewMiner(dbPath, nowMillis(), blockCapFlag, defaultLastNBlocks, defaultQueueSoftCap, expectFlag, gvsFlag)
	if err != nil {
		PrintError("failed to start miner: %s", err)
		os.Exit(1)
	}
	defer m.Close()

	ingress := NewIngress(m)
	go func() {
		if err := ingress.ListenAndServe(listenFlag); err != nil {
			PrintError("ingress listener stopped: %s", err)
		}
	}()

	go m.RunAssembly()
	go m.RunCleaning()
	go StartRestServer(m, apiListenFlag, apiPortFlag)

	PrintSuccess("cindra miner serving on %s (API on %s:%d)", listenFlag, apiListenFlag, apiPortFlag)

	if expectFlag > 0 {
		waitForExpect(m)
		return
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	PrintWarning("stop signal received, shutting down")
}

func waitForExpect(m *Miner) {
	start := time.Now()
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for range ticker.C {
		if m.ExpectMet() && m.Quiescent() {
			PrintSuccess("mined %d transactions in %s", expectFlag, time.Since(start))
			return
		}
	}
}

func runGVNew(cmd *cobra.Command, args []string) {
	mnemonic, secret, err := NewGVSecret()
	if err != nil {
		PrintError("failed to generate GV secret: %s", err)
		os.Exit(1)
	}
	fmt.Println("Mnemonic (keep this safe, it recovers your GV secret):")
	fmt.Println("  " + mnemonic)
	fmt.Printf("GV secret (hex): %x\n", secret)
}

func runStats(cmd *cobra.Command, args []string) {
	if !dbExists(dbPath) {
		PrintWarning("no store found at %s", dbPath)
		return
	}

	store, ptr, err := Open(dbPath, nowMillis())
	if err != nil {
		PrintError("failed to open store: %s", err)
		os.Exit(1)
	}
	defer store.Close()

	var blockCount, liveTxCount, prunedCount int
	store.Scan(func(hash []byte, b *Block) {
		blockCount++
		liveTxCount += len(b.Txs())
		prunedCount += countPruned(b.Tree.Root)
	})

	fmt.Println("=== cindra store stats ===")
	fmt.Printf("Blocks created:     %d\n", ptr.BlocksCreated)
	fmt.Printf("Blocks stored:      %d\n", blockCount)
	fmt.Printf("Live transactions:  %d\n", liveTxCount)
	fmt.Printf("Pruned nodes:       %d\n", prunedCount)
}

func countPruned(n *merkleNode) int {
	if n == nil {
		return 0
	}
	if n.isPruned() {
		return 1
	}
	total := 0
	for _, c := range n.Children {
		total += countPruned(c)
	}
	return total
}
