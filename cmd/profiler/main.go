// Command profiler drives extraction, pipe and test runs over a synthetic
// archive so they can be profiled with pprof and the execution tracer.
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand" //nolint:gosec // intentional use for reproducible benchmarks
	"net/http"
	_ "net/http/pprof" //nolint:gosec // intentional profiling endpoint
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"runtime/trace"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"

	"github.com/meigma/unzip"
)

type config struct {
	mode            string
	files           int
	fileSize        int
	dirCount        int
	compression     string
	pattern         string
	dataURL         string
	dataHTTPLatency time.Duration
	dataHTTPBPS     int64
	duration        time.Duration
	iterations      int
	pprofAddr       string
	cpuProfile      string
	memProfile      string
	traceFile       string
	workers         int
	include         string
	tempDir         string
	keepTemp        bool
	randomSeed      int64
}

func main() {
	cfg := parseFlags()

	if cfg.pprofAddr != "" {
		go func() {
			log.Printf("pprof listening on %s", cfg.pprofAddr)
			//nolint:gosec // intentional pprof server without timeouts for profiling
			if err := http.ListenAndServe(cfg.pprofAddr, nil); err != nil {
				log.Printf("pprof server error: %v", err)
			}
		}()
	}

	dir, cleanup, err := setupTempDir(cfg)
	if err != nil {
		log.Fatal(err)
	}
	if cleanup != nil {
		defer cleanup() //nolint:errcheck // cleanup errors are non-fatal in profiler
	}

	data, err := buildArchive(cfg)
	if err != nil {
		log.Fatal(err) //nolint:gocritic // exitAfterDefer is intentional - cleanup is best-effort
	}

	src, closeSource, err := openSource(cfg, data)
	if err != nil {
		log.Fatal(err)
	}
	defer closeSource()

	if cfg.cpuProfile != "" {
		cpuFile, cpuErr := os.Create(cfg.cpuProfile)
		if cpuErr != nil {
			log.Fatal(cpuErr)
		}
		if cpuErr = pprof.StartCPUProfile(cpuFile); cpuErr != nil {
			log.Fatal(cpuErr)
		}
		defer func() {
			pprof.StopCPUProfile()
			_ = cpuFile.Close()
		}()
	}

	if cfg.traceFile != "" {
		traceFile, traceErr := os.Create(cfg.traceFile)
		if traceErr != nil {
			log.Fatal(traceErr)
		}
		if traceErr = trace.Start(traceFile); traceErr != nil {
			log.Fatal(traceErr)
		}
		defer func() {
			trace.Stop()
			_ = traceFile.Close()
		}()
	}

	stats, err := runProfile(cfg, src, dir)
	if err != nil {
		log.Fatal(err)
	}

	if cfg.memProfile != "" {
		runtime.GC()
		f, err := os.Create(cfg.memProfile)
		if err != nil {
			log.Fatal(err)
		}
		if err := pprof.WriteHeapProfile(f); err != nil {
			log.Fatal(err)
		}
		_ = f.Close()
	}

	fmt.Printf("mode=%s ops=%d bytes=%s elapsed=%s throughput=%s/s\n",
		cfg.mode,
		stats.ops,
		humanize.IBytes(stats.bytes),
		stats.elapsed,
		humanize.IBytes(uint64(float64(stats.bytes)/stats.elapsed.Seconds())),
	)
}

type profileStats struct {
	ops     int
	bytes   uint64
	elapsed time.Duration
}

func runProfile(cfg config, src unzip.Source, rootDir string) (profileStats, error) {
	ctx := context.Background()
	start := time.Now()
	ops := 0
	var byteCount uint64

	shouldContinue := func() bool {
		if cfg.iterations > 0 {
			return ops < cfg.iterations
		}
		return time.Since(start) < cfg.duration
	}

	opts := []unzip.Option{unzip.WithWorkers(cfg.workers), unzip.WithQuiet(2)}
	if cfg.include != "" {
		opts = append(opts, unzip.WithInclude(strings.Split(cfg.include, ",")...))
	}

	switch cfg.mode {
	case "extract":
		for shouldContinue() {
			dest := filepath.Join(rootDir, "out", fmt.Sprintf("iter-%d", ops))
			sum, err := unzip.Extract(ctx, src, append(opts, unzip.WithOutputDir(dest))...)
			if err != nil {
				return profileStats{}, err
			}
			if err := os.RemoveAll(dest); err != nil {
				return profileStats{}, err
			}
			byteCount += sum.Bytes
			ops++
		}

	case "extract-overwrite":
		dest := filepath.Join(rootDir, "out")
		opts = append(opts, unzip.WithOutputDir(dest), unzip.WithOverwrite(true))
		for shouldContinue() {
			sum, err := unzip.Extract(ctx, src, opts...)
			if err != nil {
				return profileStats{}, err
			}
			byteCount += sum.Bytes
			ops++
		}

	case "pipe":
		for shouldContinue() {
			sum, err := unzip.ExtractToPipe(ctx, src, io.Discard, opts...)
			if err != nil {
				return profileStats{}, err
			}
			byteCount += sum.Bytes
			ops++
		}

	case "test":
		for shouldContinue() {
			if _, err := unzip.Test(ctx, src, opts...); err != nil {
				return profileStats{}, err
			}
			byteCount += uint64(cfg.files) * uint64(cfg.fileSize) //nolint:gosec // flag values are small
			ops++
		}

	case "inspect":
		for shouldContinue() {
			info, err := unzip.Inspect(src)
			if err != nil {
				return profileStats{}, err
			}
			byteCount += info.TotalUncompressedSize()
			ops++
		}

	default:
		return profileStats{}, fmt.Errorf("unknown mode: %s", cfg.mode)
	}

	return profileStats{
		ops:     ops,
		bytes:   byteCount,
		elapsed: time.Since(start),
	}, nil
}

func parseFlags() config {
	var cfg config
	var dataHTTPBPS string
	flag.StringVar(&cfg.mode, "mode", "extract", "mode: extract, extract-overwrite, pipe, test, inspect")
	flag.IntVar(&cfg.files, "files", 512, "number of files")
	flag.IntVar(&cfg.fileSize, "file-size", 16<<10, "file size in bytes")
	flag.IntVar(&cfg.dirCount, "dir-count", 16, "number of directories")
	flag.StringVar(&cfg.compression, "compression", "deflate", "compression: store, deflate or zstd")
	flag.StringVar(&cfg.pattern, "pattern", "compressible", "pattern: compressible or random")
	flag.StringVar(&cfg.dataURL, "data-url", "", "HTTP archive URL (use \"local\" to serve the generated archive)")
	flag.DurationVar(&cfg.dataHTTPLatency, "data-http-latency", 0, "per-request latency for HTTP archive source")
	flag.StringVar(&dataHTTPBPS, "data-http-bps", "", "bytes/sec throttle for HTTP archive source (e.g. 10MB)")
	flag.DurationVar(&cfg.duration, "duration", 10*time.Second, "duration to run (ignored if iterations > 0)")
	flag.IntVar(&cfg.iterations, "iterations", 0, "number of iterations to run")
	flag.StringVar(&cfg.pprofAddr, "pprof-addr", "", "pprof listen address (e.g. :6060)")
	flag.StringVar(&cfg.cpuProfile, "cpuprofile", "", "write CPU profile to file")
	flag.StringVar(&cfg.memProfile, "memprofile", "", "write heap profile to file")
	flag.StringVar(&cfg.traceFile, "trace", "", "write trace to file")
	flag.IntVar(&cfg.workers, "workers", 0, "extraction workers: <0 serial, 0 auto, >0 fixed")
	flag.StringVar(&cfg.include, "include", "", "comma separated include patterns")
	flag.StringVar(&cfg.tempDir, "temp-dir", "", "directory to extract into")
	flag.BoolVar(&cfg.keepTemp, "keep-temp", false, "keep temp dir after run")
	flag.Int64Var(&cfg.randomSeed, "seed", 1, "random seed")
	flag.Parse()
	if dataHTTPBPS != "" {
		bps, err := humanize.ParseBytes(dataHTTPBPS)
		if err != nil || bps == 0 {
			log.Fatalf("data-http-bps: invalid value %q", dataHTTPBPS)
		}
		cfg.dataHTTPBPS = int64(bps) //nolint:gosec // throttle values are small
	}
	return cfg
}

func setupTempDir(cfg config) (string, func() error, error) {
	if cfg.tempDir != "" {
		return cfg.tempDir, nil, os.MkdirAll(cfg.tempDir, 0o755) //nolint:gosec // 0o755 is intentional for profiler temp dirs
	}
	dir, err := os.MkdirTemp("", "unzip-profiler-*")
	if err != nil {
		return "", nil, err
	}
	cleanup := func() error {
		if cfg.keepTemp {
			return nil
		}
		return os.RemoveAll(dir)
	}
	return dir, cleanup, nil
}

// buildArchive encodes cfg.files entries spread over cfg.dirCount
// directories into an in-memory ZIP.
func buildArchive(cfg config) ([]byte, error) {
	method, err := parseCompression(cfg.compression)
	if err != nil {
		return nil, err
	}
	dirCount := max(cfg.dirCount, 1)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	zw.RegisterCompressor(zstd.ZipMethodWinZip, zstd.ZipCompressor())

	modified := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	for d := range dirCount {
		if _, err := zw.CreateHeader(&zip.FileHeader{Name: fmt.Sprintf("dir%02d/", d), Modified: modified}); err != nil {
			return nil, err
		}
	}

	rng := rand.New(rand.NewSource(cfg.randomSeed)) //nolint:gosec // intentional use for reproducible benchmarks
	content := make([]byte, cfg.fileSize)
	for i := range cfg.files {
		fillContent(content, i, cfg.pattern, rng)
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     fmt.Sprintf("dir%02d/file%05d.dat", i%dirCount, i),
			Method:   method,
			Modified: modified,
		})
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(content); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func fillContent(content []byte, i int, pattern string, rng *rand.Rand) {
	if pattern == "random" {
		_, _ = rng.Read(content)
		return
	}
	fillByte := byte('a' + (i % 26))
	for j := range content {
		content[j] = fillByte
	}
	if len(content) > 0 {
		content[0] = byte(i)
	}
}

func parseCompression(name string) (uint16, error) {
	switch name {
	case "store", "none":
		return zip.Store, nil
	case "deflate":
		return zip.Deflate, nil
	case "zstd":
		return zstd.ZipMethodWinZip, nil
	default:
		return 0, fmt.Errorf("unknown compression: %s", name)
	}
}

// openSource serves the archive from memory, or over HTTP when a data URL
// is configured.
func openSource(cfg config, data []byte) (unzip.Source, func(), error) {
	if cfg.dataURL == "" {
		src := unzip.NewBytesSource("profile.zip", data)
		return src, func() { _ = src.Close() }, nil
	}
	return newHTTPSource(cfg, data)
}
