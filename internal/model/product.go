package model

import "fmt"

// Product はカタログの商品ドキュメント（products/{id}）を表す。
// Fieldsにはドキュメントの全フィールドをそのまま保持する。
type Product struct {
	ID       string
	Category string
	Brand    string
	Images   []Image
	Fields   map[string]any
}

// Image は商品・カテゴリに紐づく画像を表す。
// ストレージ上のファイル名はNameで、パスは親ドキュメントIDから導出する。
type Image struct {
	Name string
}

// Counter はブランド・カテゴリの集計カウンタ（brands/{id}, cats/{id}）を表す。
type Counter struct {
	ID     string
	Amount int64 `firestore:"amount" bson:"amount"`
}

// SearchRecord は検索インデックスへ登録する商品の射影。
// 商品の全フィールドにobjectIDを加えたフラットなレコード。
type SearchRecord map[string]any

// ObjectID はレコードのobjectIDを返す。
func (r SearchRecord) ObjectID() string {
	id, _ := r[FieldObjectID].(string)
	return id
}

// NewSearchRecord はドキュメントから検索レコードを生成する。
// 元のDataは変更せず、全フィールドをコピーしたうえでobjectIDを設定する。
func NewSearchRecord(doc *Document) SearchRecord {
	rec := make(SearchRecord, len(doc.Data)+1)
	for k, v := range doc.Data {
		rec[k] = v
	}
	rec[FieldObjectID] = doc.ID
	return rec
}

// ProductRefs は商品が参照するブランドIDとカテゴリIDを取り出す。
// 他のフィールドは読まない。どちらかが欠けている場合はINVALID_DOCUMENTエラーを返す。
func ProductRefs(doc *Document) (brand, category string, err error) {
	category, ok := doc.StringField(FieldCategory)
	if !ok {
		return "", "", NewInvalidDocumentError(doc.Path(), "categoryが設定されていません")
	}
	brand, ok = doc.StringField(FieldBrand)
	if !ok {
		return "", "", NewInvalidDocumentError(doc.Path(), "brandが設定されていません")
	}
	return brand, category, nil
}

// ProductFromDocument はドキュメントを商品として解釈する。
// categoryとbrandの参照は必須で、欠けている場合はINVALID_DOCUMENTエラーを返す。
func ProductFromDocument(doc *Document) (*Product, error) {
	brand, category, err := ProductRefs(doc)
	if err != nil {
		return nil, err
	}
	images, err := ImagesFromDocument(doc)
	if err != nil {
		return nil, err
	}
	return &Product{
		ID:       doc.ID,
		Category: category,
		Brand:    brand,
		Images:   images,
		Fields:   doc.Data,
	}, nil
}

// ImagesFromDocument はドキュメントのimagesリストを取り出す。
// imagesが無い場合は空スライスを返す。要素がオブジェクトでない場合はエラーを返す。
// nameを持たない要素はName空のまま返し、削除時に要素単位のエラーとして扱う。
func ImagesFromDocument(doc *Document) ([]Image, error) {
	raw, ok := doc.Data[FieldImages]
	if !ok || raw == nil {
		return nil, nil
	}

	list, ok := raw.([]any)
	if !ok {
		return nil, NewInvalidDocumentError(doc.Path(), fmt.Sprintf("imagesがリストではありません: %T", raw))
	}

	images := make([]Image, 0, len(list))
	for i, el := range list {
		m, ok := el.(map[string]any)
		if !ok {
			return nil, NewInvalidDocumentError(doc.Path(), fmt.Sprintf("images[%d]がオブジェクトではありません: %T", i, el))
		}
		name, _ := m[FieldImageName].(string)
		images = append(images, Image{Name: name})
	}
	return images, nil
}
