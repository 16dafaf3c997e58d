//go:build ignore

// build.go - collisio build script
// Usage: go run build.go [-target=TARGET] [-v]
// Targets: all, cli, web, test, clean, release

package main

import (
	"flag"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

const (
	version = "0.1.0"
	module  = "collisio"
	distDir = "dist"
)

// executables maps a cmd/ directory to its binary name
var executables = map[string]string{
	"collisio":     "collisio",
	"collisio-web": "collisio-web",
}

// release platforms as GOOS/GOARCH; h3 needs cgo, so cross builds use the hotspot stub
var platforms = []string{"linux/amd64", "linux/arm64", "darwin/arm64", "windows/amd64"}

var (
	colorReset = "\033[0m"
	colorRed   = "\033[31m"
	colorGreen = "\033[32m"
	colorBlue  = "\033[34m"
	colorCyan  = "\033[36m"
)

func main() {
	target := flag.String("target", "all", "Build target")
	verbose := flag.Bool("v", false, "Verbose output")
	flag.Parse()

	printHeader()
	start := time.Now()

	var err error
	switch *target {
	case "all":
		for name := range executables {
			if err = build(name, "", "", *verbose); err != nil {
				break
			}
		}
	case "cli":
		err = build("collisio", "", "", *verbose)
	case "web":
		err = build("collisio-web", "", "", *verbose)
	case "test":
		err = run(*verbose, nil, "go", "test", "-race", "./...")
	case "clean":
		err = os.RemoveAll(distDir)
	case "release":
		err = release(*verbose)
	default:
		showHelp()
		os.Exit(1)
	}

	if err != nil {
		printError(err.Error())
		os.Exit(1)
	}
	printSuccess(fmt.Sprintf("Build completed in %s", time.Since(start).Round(time.Millisecond)))
}

func build(name, goos, goarch string, verbose bool) error {
	exe := executables[name]
	if goos == "windows" {
		exe += ".exe"
	}
	out := filepath.Join(distDir, exe)
	if goos != "" {
		out = filepath.Join(distDir, goos+"-"+goarch, exe)
	}
	printInfo(fmt.Sprintf("Building %s -> %s", name, out))

	ldflags := fmt.Sprintf("-s -w -X %s/internal/app.Version=%s -X %s/internal/app.BuildTime=%s",
		module, version, module, time.Now().UTC().Format(time.RFC3339))

	var env []string
	if goos != "" {
		env = append(env, "GOOS="+goos, "GOARCH="+goarch, "CGO_ENABLED=0")
	}

	args := []string{"build", "-trimpath", "-ldflags", ldflags, "-o", out, "./cmd/" + name}
	if err := run(verbose, env, "go", args...); err != nil {
		return fmt.Errorf("build %s: %w", name, err)
	}

	if info, err := os.Stat(out); err == nil {
		printSuccess(fmt.Sprintf("Built %s (%.1f MB)", out, float64(info.Size())/1024/1024))
	}
	return nil
}

func release(verbose bool) error {
	for _, p := range platforms {
		goos, goarch, _ := strings.Cut(p, "/")
		for name := range executables {
			if err := build(name, goos, goarch, verbose); err != nil {
				return err
			}
		}
	}
	return nil
}

func run(verbose bool, env []string, name string, args ...string) error {
	cmd := exec.Command(name, args...)
	cmd.Env = append(os.Environ(), env...)
	cmd.Stderr = os.Stderr
	if verbose {
		fmt.Printf("Running: %s %s\n", name, strings.Join(args, " "))
		cmd.Stdout = os.Stdout
	}
	return cmd.Run()
}

func printHeader() {
	fmt.Println(colorCyan + "===========================================" + colorReset)
	fmt.Println(colorCyan + "         collisio - Build System           " + colorReset)
	fmt.Println(colorCyan + "===========================================" + colorReset)
	fmt.Println()
}

func printInfo(msg string) {
	fmt.Printf("%s[INFO]%s %s\n", colorBlue, colorReset, msg)
}

func printSuccess(msg string) {
	fmt.Printf("%s[SUCCESS]%s %s\n", colorGreen, colorReset, msg)
}

func printError(msg string) {
	fmt.Printf("%s[ERROR]%s %s\n", colorRed, colorReset, msg)
}

func showHelp() {
	fmt.Println("Usage: go run build.go -target=TARGET [-v]")
	fmt.Println()
	fmt.Println("Targets:")
	fmt.Println("  all      Build collisio and collisio-web into dist/")
	fmt.Println("  cli      Build collisio")
	fmt.Println("  web      Build collisio-web")
	fmt.Println("  test     Run all tests with the race detector")
	fmt.Println("  clean    Remove dist/")
	fmt.Println("  release  Cross-compile both binaries for every platform")
}
