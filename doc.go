// Package wavemoth compresses the matrices of fast spherical harmonic
// transforms with butterfly trees and stores them in keyed resource files.
//
// What is inside?
//
//	A pure Go pipeline that brings together:
//		• Dense linear algebra: row-major matrices, gonum BLAS bridges, pivoted QR
//		• Interpolative decomposition: skeleton columns + interpolation matrix
//		• Butterfly trees: recursive row splits over merged column skeletons
//		• Resource files: aligned blocks behind an (m, odd) offset table
//		• Precompute: sharded workers, consistency-checked merge, CLI
//
// Packages:
//
//	matrix/     dense storage, validators, Gemm, pivoted QR
//	id/         interpolative decomposition, dense and sparse forms
//	butterfly/  tree builder, Apply / ApplyTranspose, stream codec
//	resource/   keyed random-access file, writer, mmap reader
//	legendre/   HEALPix rings and normalized associated Legendre matrices
//	precompute/ worker, merge, end-to-end Run
//	shard/      goleveldb worker output
//	pool/       immediate and errgroup executors
//	blobstore/  local, memory, S3 and MinIO blob stores
//	config/     TOML run configuration
//	cmd/wavemoth command-line front end
//
// Quick sketch of a tree over 4 row blocks:
//
//	level 0   [ rows 0..n )          column chunks c0 c1 c2 c3
//	level 1   [ 0..n/2 ) [ n/2..n )  merged pairs (c0 c1) (c2 c3)
//	level 2   four leaves            merged (c0 c1 c2 c3), dense blocks
//
//	go get github.com/katalvlaran/wavemoth
package wavemoth
