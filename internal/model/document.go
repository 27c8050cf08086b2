// Package model はドメインモデルを定義する。
package model

import "fmt"

// コレクション名
const (
	CollectionUsers    = "users"
	CollectionRoles    = "roles"
	CollectionProducts = "products"
	CollectionCats     = "cats"
	CollectionBrands   = "brands"
)

// ドキュメントのフィールド名
const (
	FieldCreatedTimestamp       = "createdTimestamp"
	FieldEmailVerified          = "emailVerified"
	FieldEmailVerifiedTimestamp = "emailVerifiedTimestamp"
	FieldEmail                  = "email"
	FieldRole                   = "role"
	FieldAmount                 = "amount"
	FieldCategory               = "category"
	FieldBrand                  = "brand"
	FieldImages                 = "images"
	FieldImageName              = "name"
	FieldObjectID               = "objectID"
)

// Document はドキュメントストアのスナップショットを表す。
// Dataはストアから読み出したフィールドをそのまま保持する。
type Document struct {
	Collection string
	ID         string
	Data       map[string]any
}

// Path は "collection/id" 形式のドキュメントパスを返す。
func (d *Document) Path() string {
	return d.Collection + "/" + d.ID
}

// String はログ出力用の表現を返す。
func (d *Document) String() string {
	if d == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s (%d fields)", d.Path(), len(d.Data))
}

// StringField は指定フィールドを文字列として取り出す。
// 存在しない、または文字列でない場合はokにfalseを返す。
func (d *Document) StringField(name string) (string, bool) {
	if d == nil || d.Data == nil {
		return "", false
	}
	v, ok := d.Data[name].(string)
	return v, ok && v != ""
}
