// Package mefd reads and writes MEF 3.0 (Multiscale Electrophysiology
// Format) sessions: directory-structured, block-compressed, optionally
// encrypted containers for long multi-channel time-series recordings.
//
// A session is a directory ending in ".mefd" holding one channel
// directory (".timd") per channel, each split into segment directories
// (".segd") of three files: RED-compressed sample data (".tdat"), a block
// index (".tidx"), and fixed-layout metadata (".tmet"). Every file starts
// with a 1024-byte Universal Header carrying CRCs, identity UUIDs, and
// optional password validation fields.
//
// # Writing
//
//	writer, err := mefd.NewMefWriter("recording.mefd", true,
//	    mefd.WithBlockLength(1000),
//	    mefd.WithUnits("uV"),
//	)
//	if err != nil {
//	    return err
//	}
//	defer writer.Close()
//
//	start := time.Now().UnixMicro()
//	if err := writer.WriteData(samples, "eeg_01", start, 1000.0); err != nil {
//	    return err
//	}
//
// The writer quantizes float64 samples to int32 (NaN becomes the REDNaN
// sentinel), splits them into RED blocks, and opens a new segment at every
// time discontinuity. A segment becomes durable when its .tmet/.tidx pair
// is written, at segment rollover or Close.
//
// # Reading
//
//	reader, err := mefd.NewMefReader("recording.mefd")
//	if err != nil {
//	    return err
//	}
//	data, err := reader.GetData("eeg_01")
//
// Readers load all indices and metadata up front and service time- or
// sample-range queries by decompressing only the overlapping blocks.
// Damaged segments are skipped; the query result is whatever is readable.
//
// Subpackages implement the layers of the format: red (the lossless
// difference codec), section (packed binary structures), crc (Koopman
// CRC-32), crypt (AES-128 payload protection and password validation),
// format (wire constants), and endian (byte order utilities).
package mefd
