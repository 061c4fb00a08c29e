package merge

import (
	"path/filepath"
	"strings"
)

// SourceID 由文件路径得到来源标识（去掉目录和扩展名的文件名）
func SourceID(path string) string {
	base := filepath.Base(path)
	if base == "." || base == string(filepath.Separator) {
		return ""
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// OutputPath 返回主表对应的输出路径：<dir>/<stem><suffix><ext>
// ext 为空时沿用主表的扩展名
func OutputPath(primary, suffix, ext string) string {
	if ext == "" {
		ext = filepath.Ext(primary)
	} else if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return filepath.Join(filepath.Dir(primary), SourceID(primary)+suffix+ext)
}
