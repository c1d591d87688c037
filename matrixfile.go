package netlab

//
// Precomputed matrix-set files
//

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// matrixFileEntry is an entry of the matrix-set JSON file.
type matrixFileEntry struct {
	MatrixType int     `json:"matrix_type"`
	MatrixData *Matrix `json:"matrix_data"`
}

// matrixFile is the matrix-set JSON file format:
//
//	{"data": [{"matrix_type": 0, "matrix_data": [[0, 1], [1, 0]]}, ...]}
//
// where matrix_type is the integer value of a [MatrixType].
type matrixFile struct {
	Data []matrixFileEntry `json:"data"`
}

// LoadMatrixFile loads a [MatrixSet] from a precomputed JSON file. Matrix
// types missing from the file become zero matrices. A missing or malformed
// file, or a file without adjacency, is an [ErrConfig] error.
func LoadMatrixFile(path string) (*MatrixSet, error) {
	fp, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfig, err)
	}
	defer fp.Close()
	ms, err := ReadMatrixFile(fp)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ms, nil
}

// ReadMatrixFile is like [LoadMatrixFile] but reads from a [io.Reader].
func ReadMatrixFile(r io.Reader) (*MatrixSet, error) {
	var mf matrixFile
	if err := json.NewDecoder(r).Decode(&mf); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfig, err)
	}

	ms := &MatrixSet{}
	for _, entry := range mf.Data {
		mt := MatrixType(entry.MatrixType)
		if mt < MatrixAdjacency || mt > MatrixJitter {
			return nil, fmt.Errorf("%w: unknown matrix_type %d", ErrConfig, entry.MatrixType)
		}
		if entry.MatrixData == nil {
			return nil, fmt.Errorf("%w: %s: missing matrix_data", ErrConfig, mt)
		}
		if ms.Get(mt) != nil {
			return nil, fmt.Errorf("%w: duplicate %s matrix", ErrConfig, mt)
		}
		ms.Set(mt, *entry.MatrixData)
	}

	if ms.Adjacency == nil {
		return nil, fmt.Errorf("%w: missing adjacency matrix", ErrConfig)
	}
	for _, mt := range AllMatrixTypes[1:] {
		if ms.Get(mt) == nil {
			ms.Set(mt, NewMatrix(ms.NumNodes()))
		}
	}
	if err := ms.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfig, err)
	}
	return ms, nil
}

// WriteMatrixFile writes a [MatrixSet] using the matrix-set JSON format.
func WriteMatrixFile(w io.Writer, ms *MatrixSet) error {
	var mf matrixFile
	for _, mt := range AllMatrixTypes {
		m := ms.Get(mt)
		mf.Data = append(mf.Data, matrixFileEntry{MatrixType: int(mt), MatrixData: &m})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(&mf)
}
