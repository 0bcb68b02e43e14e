package models

import "time"

// Monetary values and quantities are stored as formatted strings and parsed
// with decimal at the boundary. All rows are tenant-scoped by CompanyId.

type Product struct {
	ID          int64  `gorm:"primaryKey;autoIncrement"`
	CompanyId   int64  `gorm:"index;not null"`
	Code        string `gorm:"type:varchar(32);index"`
	EAN         string `gorm:"type:varchar(14)"`
	Description string `gorm:"type:varchar(128);not null"`
	Unit        string `gorm:"type:varchar(8);not null"`
	Price       string `gorm:"type:varchar(32);not null"`
	Stock       string `gorm:"type:varchar(32);not null"`
	IsActive    bool   `gorm:"not null;default:true"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Client struct {
	ID              int64  `gorm:"primaryKey;autoIncrement"`
	CompanyId       int64  `gorm:"index;not null"`
	RazaoSocial     string `gorm:"type:varchar(128);not null"`
	NomeFantasia    string `gorm:"type:varchar(128)"`
	Documento       string `gorm:"type:varchar(18)"`
	ConsumidorFinal bool   `gorm:"not null;default:false"`
	IsActive        bool   `gorm:"not null;default:true"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type PaymentMethod struct {
	ID           int64  `gorm:"primaryKey;autoIncrement"`
	CompanyId    int64  `gorm:"index;not null"`
	Description  string `gorm:"type:varchar(64);not null"`
	AllowsChange bool   `gorm:"not null"`
	IsActive     bool   `gorm:"not null;default:true"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Order struct {
	ID         int64   `gorm:"primaryKey;autoIncrement"`
	CompanyId  int64   `gorm:"uniqueIndex:idx_company_number;not null"`
	Number     int64   `gorm:"uniqueIndex:idx_company_number;not null"`
	ClientId   int64   `gorm:"not null"`
	GrossTotal string  `gorm:"type:varchar(32);not null"`
	Discount   string  `gorm:"type:varchar(32);not null"`
	Surcharge  string  `gorm:"type:varchar(32);not null"`
	NetTotal   string  `gorm:"type:varchar(32);not null"`
	Notes      *string `gorm:"type:text"`
	CreatedAt  time.Time
	UpdatedAt  time.Time

	Client   *Client        `gorm:"foreignKey:ClientId"`
	Items    []OrderItem    `gorm:"foreignKey:OrderId"`
	Payments []OrderPayment `gorm:"foreignKey:OrderId"`
}

type OrderItem struct {
	ID          int64  `gorm:"primaryKey;autoIncrement"`
	OrderId     int64  `gorm:"index;not null"`
	ProductId   int64  `gorm:"not null"`
	Description string `gorm:"type:varchar(128);not null"`
	Unit        string `gorm:"type:varchar(8);not null"`
	Quantity    string `gorm:"type:varchar(32);not null"`
	UnitPrice   string `gorm:"type:varchar(32);not null"`
	LineTotal   string `gorm:"type:varchar(32);not null"`
	CreatedAt   time.Time

	Product *Product `gorm:"foreignKey:ProductId"`
}

type OrderPayment struct {
	ID              int64  `gorm:"primaryKey;autoIncrement"`
	OrderId         int64  `gorm:"index;not null"`
	PaymentMethodId int64  `gorm:"not null"`
	Description     string `gorm:"type:varchar(64);not null"`
	Amount          string `gorm:"type:varchar(32);not null"`
	Change          string `gorm:"type:varchar(32);not null"`
	CreatedAt       time.Time

	PaymentMethod *PaymentMethod `gorm:"foreignKey:PaymentMethodId"`
}
