// Copyright 2026 firmfuzz project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package bucket

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
)

// SignatureStat counts bug reports per signature across fuzzer restarts.
type SignatureStat struct {
	Count      int
	Signatures map[string]*SignatureInfo
}

type SignatureInfo struct {
	Count int
	First string // id of the first report
	Last  string // id of the most recent report
}

func AddToStatFile(file, signature, id string) error {
	stat, err := ReadStatFile(file)
	if err != nil {
		return fmt.Errorf("readStatFile: %w", err)
	}
	stat.Add(signature, id)
	bytes, err := stat.ToBytes()
	if err != nil {
		return err
	}
	return os.WriteFile(file, bytes, 0644)
}

func ReadStatFile(file string) (*SignatureStat, error) {
	res := &SignatureStat{}
	if _, err := os.Stat(file); errors.Is(err, os.ErrNotExist) {
		return res, nil
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	return StatFromBytes(data)
}

func StatFromBytes(data []byte) (*SignatureStat, error) {
	var ss SignatureStat
	if len(data) == 0 {
		return &ss, nil
	}
	if err := json.Unmarshal(data, &ss); err != nil {
		return nil, err
	}
	return &ss, nil
}

func (ss *SignatureStat) Add(signature, id string) {
	ss.Count++
	if ss.Signatures == nil {
		ss.Signatures = make(map[string]*SignatureInfo)
	}
	info := ss.Signatures[signature]
	if info == nil {
		info = &SignatureInfo{First: id}
		ss.Signatures[signature] = info
	}
	info.Count++
	info.Last = id
}

func (ss *SignatureStat) ToBytes() ([]byte, error) {
	return json.MarshalIndent(ss, "", "\t")
}

type SignatureFreq struct {
	Signature string
	Count     int
	Total     int
}

// Explain returns signatures ordered by decreasing frequency.
func (ss *SignatureStat) Explain() []*SignatureFreq {
	var res []*SignatureFreq
	for sig, info := range ss.Signatures {
		res = append(res, &SignatureFreq{
			Signature: sig,
			Count:     info.Count,
			Total:     ss.Count,
		})
	}
	sort.Slice(res, func(l, r int) bool {
		if res[l].Count != res[r].Count {
			return res[l].Count > res[r].Count
		}
		return res[l].Signature < res[r].Signature
	})
	return res
}

func (sf *SignatureFreq) String() string {
	return fmt.Sprintf("[freq %5.1f%%] %v", 100*float32(sf.Count)/float32(sf.Total), sf.Signature)
}
