package publisher

import (
	"path"
	"path/filepath"
	"strings"
)

const (
	// LibraryPDFDirName はライブラリディレクトリ配下の PDF 保存先です。
	LibraryPDFDirName = "pdfs"
	// LibraryPDFURLPrefix は保存済み PDF を配信する URL のプレフィックスです。
	LibraryPDFURLPrefix = "/library/pdfs/"
)

// LibraryPDFPath は、ライブラリディレクトリ内の PDF の保存パスを返します。
// fileName にディレクトリ成分が含まれる場合はベース名のみを使用します。
func LibraryPDFPath(libraryDir, fileName string) string {
	return filepath.Join(libraryDir, LibraryPDFDirName, filepath.Base(fileName))
}

// LibraryPDFURL は保存済み PDF の公開 URL を返します。
func LibraryPDFURL(fileName string) string {
	return path.Join(LibraryPDFURLPrefix, filepath.Base(fileName))
}

// ResolveImagePath は "/images/panel_0.png" のような公開 URL を imagesDir 内のファイルパスに変換します。
// 既にファイルパスの場合はそのまま返します。
func ResolveImagePath(imagesDir, imageURL, urlPrefix string) string {
	if strings.HasPrefix(imageURL, urlPrefix) {
		return filepath.Join(imagesDir, filepath.Base(strings.TrimPrefix(imageURL, urlPrefix)))
	}
	return imageURL
}
