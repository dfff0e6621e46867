// Package unzip extracts ZIP archives in parallel.
//
// An archive is read through a [Source], which can be reopened cheaply so
// that every worker gets its own cursor: a local file ([OpenFile], memory
// mapped when large), an in-memory buffer ([NewBytesSource]) or a remote
// object served with HTTP range requests ([OpenURL]).
//
// # Quick Start
//
// Extract an archive into a directory:
//
//	src, err := unzip.OpenFile("release.zip")
//	if err != nil {
//	    return err
//	}
//	defer src.Close()
//
//	sum, err := unzip.Extract(ctx, src,
//	    unzip.WithOutputDir("./out"),
//	    unzip.WithExclude("*.log"),
//	)
//
// Directories are created first, files are then written by a pool of
// workers, and directory timestamps are restored last. Existing files are
// skipped unless [WithOverwrite], [WithFreshen] or [WithUpdate] is given.
//
// # Encrypted archives
//
// ZipCrypto and WinZip AES entries are decrypted with a password given by
// [WithPassword] or requested once per run from a [Prompter]. An entry the
// password does not decrypt is counted as skipped; the run continues.
//
// # Other modes
//
// [ExtractToPipe] concatenates the selected entries onto a writer, [Test]
// verifies every entry without writing anything, and [Inspect] lists the
// central directory.
package unzip
