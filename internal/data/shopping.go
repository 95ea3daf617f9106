package data

import "time"

// ShoppingItem is the local representation of an item, embedded in its list.
type ShoppingItem struct {
	LogicalId   string    `json:"id"`
	StorageId   *string   `json:"storageId,omitempty"`
	ListRef     string    `json:"listId"`
	Name        string    `json:"name"`
	Quantity    float32   `json:"quantity"`
	Category    string    `json:"category,omitempty"`
	Completed   bool      `json:"completed"`
	Deleted     bool      `json:"deleted"`
	Position    int       `json:"position"`
	PhotoURL    *string   `json:"photoURL,omitempty"`
	PendingSync bool      `json:"pendingSync,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (i ShoppingItem) IsDeleted() bool {
	return i.Deleted
}

func (i ShoppingItem) Ids() Identifiers {
	return Identifiers{LogicalId: i.LogicalId, StorageId: i.StorageId}
}

// ShoppingList is the local representation of a list. Items are embedded here
// but live in their own collection on the remote tier.
type ShoppingList struct {
	LogicalId   string         `json:"id"`
	StorageId   *string        `json:"storageId,omitempty"`
	Name        string         `json:"name"`
	Archived    bool           `json:"archived"`
	Deleted     bool           `json:"deleted"`
	PendingSync bool           `json:"pendingSync,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
	Items       []ShoppingItem `json:"items"`
}

func (l ShoppingList) IsDeleted() bool {
	return l.Deleted
}

func (l ShoppingList) Ids() Identifiers {
	return Identifiers{LogicalId: l.LogicalId, StorageId: l.StorageId}
}

type ShoppingListDTO struct {
	PK         string    `dynamodbav:"PK"`
	SK         string    `dynamodbav:"SK"`
	LogicalId  string    `dynamodbav:"logicalId"`
	AccountId  string    `dynamodbav:"accountId"`
	Name       string    `dynamodbav:"name"`
	Archived   bool      `dynamodbav:"archived"`
	Deleted    bool      `dynamodbav:"deleted"`
	CreateTime time.Time `dynamodbav:"createTime"`
	UpdateTime time.Time `dynamodbav:"updateTime"`
}

func (l ShoppingListDTO) IsDeleted() bool {
	return l.Deleted
}

// ShoppingListInputDTO is both the create input and the update patch. It has
// no items. LogicalId and StorageId are only honoured on create; a pinned
// StorageId makes a second create of the same record fail as a conflict.
type ShoppingListInputDTO struct {
	StorageId *string `dynamodbav:"-"`
	LogicalId *string `dynamodbav:"logicalId"`
	AccountId *string `dynamodbav:"accountId"`
	Name      *string `dynamodbav:"name"`
	Archived  *bool   `dynamodbav:"archived"`
	Deleted   *bool   `dynamodbav:"deleted"`
}

func (in ShoppingListInputDTO) ApplyTo(dto *ShoppingListDTO) {
	if in.AccountId != nil {
		dto.AccountId = *in.AccountId
	}
	if in.Name != nil {
		dto.Name = *in.Name
	}
	if in.Archived != nil {
		dto.Archived = *in.Archived
	}
	if in.Deleted != nil {
		dto.Deleted = *in.Deleted
	}
}

type ShoppingItemDTO struct {
	PK         string    `dynamodbav:"PK"`
	SK         string    `dynamodbav:"SK"`
	LogicalId  string    `dynamodbav:"logicalId"`
	ListRef    string    `dynamodbav:"listRef"`
	AccountId  string    `dynamodbav:"accountId"`
	Name       string    `dynamodbav:"name"`
	Quantity   float32   `dynamodbav:"quantity"`
	Category   string    `dynamodbav:"category"`
	Completed  bool      `dynamodbav:"completed"`
	Deleted    bool      `dynamodbav:"deleted"`
	Position   int       `dynamodbav:"position"`
	PhotoURL   *string   `dynamodbav:"photoURL"`
	CreateTime time.Time `dynamodbav:"createTime"`
	UpdateTime time.Time `dynamodbav:"updateTime"`
}

func (i ShoppingItemDTO) IsDeleted() bool {
	return i.Deleted
}

type ShoppingItemInputDTO struct {
	LogicalId *string  `dynamodbav:"logicalId"`
	ListRef   *string  `dynamodbav:"listRef"`
	AccountId *string  `dynamodbav:"accountId"`
	Name      *string  `dynamodbav:"name"`
	Quantity  *float32 `dynamodbav:"quantity"`
	Category  *string  `dynamodbav:"category"`
	Completed *bool    `dynamodbav:"completed"`
	Deleted   *bool    `dynamodbav:"deleted"`
	Position  *int     `dynamodbav:"position"`
	PhotoURL  *string  `dynamodbav:"photoURL"`
}

func (in ShoppingItemInputDTO) ApplyTo(dto *ShoppingItemDTO) {
	if in.ListRef != nil {
		dto.ListRef = *in.ListRef
	}
	if in.AccountId != nil {
		dto.AccountId = *in.AccountId
	}
	if in.Name != nil {
		dto.Name = *in.Name
	}
	if in.Quantity != nil {
		dto.Quantity = *in.Quantity
	}
	if in.Category != nil {
		dto.Category = *in.Category
	}
	if in.Completed != nil {
		dto.Completed = *in.Completed
	}
	if in.Deleted != nil {
		dto.Deleted = *in.Deleted
	}
	if in.Position != nil {
		dto.Position = *in.Position
	}
	if in.PhotoURL != nil {
		dto.PhotoURL = in.PhotoURL
	}
}

// NewRecord builds the document written on create. The storage id doubles as
// the logical id when the caller did not supply one.
func (in ShoppingListInputDTO) NewRecord(pk string, sk string, createTime time.Time) ShoppingListDTO {
	if in.StorageId != nil {
		sk = *in.StorageId
	}
	dto := ShoppingListDTO{
		PK:         pk,
		SK:         sk,
		LogicalId:  sk,
		CreateTime: createTime,
		UpdateTime: createTime,
	}
	if in.LogicalId != nil {
		dto.LogicalId = *in.LogicalId
	}
	in.ApplyTo(&dto)
	return dto
}

func (in ShoppingItemInputDTO) NewRecord(pk string, sk string, createTime time.Time) ShoppingItemDTO {
	dto := ShoppingItemDTO{
		PK:         pk,
		SK:         sk,
		LogicalId:  sk,
		CreateTime: createTime,
		UpdateTime: createTime,
	}
	if in.LogicalId != nil {
		dto.LogicalId = *in.LogicalId
	}
	in.ApplyTo(&dto)
	return dto
}

// NewListInput captures every mutable field of a local list.
func NewListInput(list ShoppingList) ShoppingListInputDTO {
	return ShoppingListInputDTO{
		LogicalId: &list.LogicalId,
		Name:      &list.Name,
		Archived:  &list.Archived,
		Deleted:   &list.Deleted,
	}
}

// NewItemInput captures every mutable field of a local item. The remote list
// reference is supplied by the caller since it depends on the parent's ids.
func NewItemInput(item ShoppingItem, listRef string) ShoppingItemInputDTO {
	return ShoppingItemInputDTO{
		LogicalId: &item.LogicalId,
		ListRef:   &listRef,
		Name:      &item.Name,
		Quantity:  &item.Quantity,
		Category:  &item.Category,
		Completed: &item.Completed,
		Deleted:   &item.Deleted,
		Position:  &item.Position,
		PhotoURL:  item.PhotoURL,
	}
}

func NewShoppingList(dto ShoppingListDTO) ShoppingList {
	storageId := dto.SK
	return ShoppingList{
		LogicalId: dto.LogicalId,
		StorageId: &storageId,
		Name:      dto.Name,
		Archived:  dto.Archived,
		Deleted:   dto.Deleted,
		CreatedAt: dto.CreateTime,
		UpdatedAt: dto.UpdateTime,
		Items:     []ShoppingItem{},
	}
}

// NewShoppingItem converts a remote item. listId is the owning list's logical
// id, which is what local items reference regardless of the remote listRef.
func NewShoppingItem(dto ShoppingItemDTO, listId string) ShoppingItem {
	storageId := dto.SK
	return ShoppingItem{
		LogicalId: dto.LogicalId,
		StorageId: &storageId,
		ListRef:   listId,
		Name:      dto.Name,
		Quantity:  dto.Quantity,
		Category:  dto.Category,
		Completed: dto.Completed,
		Deleted:   dto.Deleted,
		Position:  dto.Position,
		PhotoURL:  dto.PhotoURL,
		CreatedAt: dto.CreateTime,
		UpdatedAt: dto.UpdateTime,
	}
}
