package registry

import (
	"bytes"
	"encoding/json"

	"entmerge/pkg/contract"
	fdigits "entmerge/plugins/formatter/digits"
	fhex "entmerge/plugins/formatter/hex"
	flist "entmerge/plugins/formatter/list"
	rfs "entmerge/plugins/reader/filesystem"
	rprompt "entmerge/plugins/reader/prompt"
	slines "entmerge/plugins/splitter/lines"
)

// strictUnmarshal: 使用 DisallowUnknownFields 严格解码，拒绝未知字段。
func strictUnmarshal(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		// 保持零值（默认选项）
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// NewReader 工厂签名：接收原样 JSON Options。
type NewReader func(raw json.RawMessage) (contract.Reader, error)

// NewSplitter 工厂签名：接收原样 JSON Options。
type NewSplitter func(raw json.RawMessage) (contract.Splitter, error)

// NewFormatter 工厂签名：接收原样 JSON Options。
type NewFormatter func(raw json.RawMessage) (contract.Formatter, error)

// Reader 工厂注册表（显式、零反射）。
var Reader = map[string]NewReader{
	// fs: 文件/STDIN Reader
	"fs": func(raw json.RawMessage) (contract.Reader, error) {
		var opts rfs.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return rfs.New(&opts), nil
	},
	// prompt: 终端逐行录入（默认不回显）
	"prompt": func(raw json.RawMessage) (contract.Reader, error) {
		var opts rprompt.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return rprompt.New(&opts), nil
	},
}

// Splitter 工厂注册表。
var Splitter = map[string]NewSplitter{
	// lines: 一行一个独立熵源
	"lines": func(raw json.RawMessage) (contract.Splitter, error) {
		var opts slines.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return slines.New(&opts), nil
	},
}

// Formatter 工厂注册表。
var Formatter = map[string]NewFormatter{
	// list: [0, 1, 1, …]
	"list": func(raw json.RawMessage) (contract.Formatter, error) {
		var opts flist.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return flist.New(&opts), nil
	},
	// digits: 连续数字串（base<=36），可分组
	"digits": func(raw json.RawMessage) (contract.Formatter, error) {
		var opts fdigits.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return fdigits.New(&opts)
	},
	// hex: base 2/16 打包为十六进制
	"hex": func(raw json.RawMessage) (contract.Formatter, error) {
		var opts fhex.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return fhex.New(&opts), nil
	},
}
