package metadata

// Sample database ids. They match the catalog returned by SampleDatabase.
const (
	SampleDatabaseID int64 = 1

	ProductsID int64 = 1
	OrdersID   int64 = 2
	PeopleID   int64 = 3
	ReviewsID  int64 = 4
)

var Products = struct {
	ID, EAN, Title, Category, Vendor, Price, Rating, CreatedAt int64
}{1, 2, 3, 4, 5, 6, 7, 8}

var Orders = struct {
	ID, UserID, ProductID, Subtotal, Tax, Total, Discount, CreatedAt, Quantity int64
}{11, 13, 15, 14, 10, 12, 17, 16, 18}

var People = struct {
	ID, Address, Email, Password, Name, City, Longitude, State, Source, BirthDate, Zip, Latitude, CreatedAt int64
}{21, 22, 23, 24, 25, 26, 27, 28, 29, 30, 31, 32, 33}

var Reviews = struct {
	ID, ProductID, Reviewer, Rating, Body, CreatedAt int64
}{41, 42, 43, 44, 45, 46}

func fk(id int64) *int64 { return &id }

// SampleDatabase returns the bundled sample catalog.
func SampleDatabase() *Metadata {
	dbs := []Database{{
		ID:       SampleDatabaseID,
		Name:     "Sample Database",
		Engine:   "h2",
		Features: []string{FeatureJoin, FeatureExpressions, FeatureNestedQueries, "basic-aggregations", "standard-deviation-aggregations"},
	}}
	tables := []Table{
		{ID: ProductsID, DatabaseID: SampleDatabaseID, Schema: "PUBLIC", Name: "PRODUCTS", DisplayName: "Products"},
		{ID: OrdersID, DatabaseID: SampleDatabaseID, Schema: "PUBLIC", Name: "ORDERS", DisplayName: "Orders"},
		{ID: PeopleID, DatabaseID: SampleDatabaseID, Schema: "PUBLIC", Name: "PEOPLE", DisplayName: "People"},
		{ID: ReviewsID, DatabaseID: SampleDatabaseID, Schema: "PUBLIC", Name: "REVIEWS", DisplayName: "Reviews"},
	}
	fields := []Field{
		{ID: Products.ID, TableID: ProductsID, Name: "ID", DisplayName: "ID", BaseType: "type/BigInteger", SemanticType: "type/PK"},
		{ID: Products.EAN, TableID: ProductsID, Name: "EAN", DisplayName: "Ean", BaseType: "type/Text"},
		{ID: Products.Title, TableID: ProductsID, Name: "TITLE", DisplayName: "Title", BaseType: "type/Text", SemanticType: "type/Title"},
		{ID: Products.Category, TableID: ProductsID, Name: "CATEGORY", DisplayName: "Category", BaseType: "type/Text", SemanticType: "type/Category"},
		{ID: Products.Vendor, TableID: ProductsID, Name: "VENDOR", DisplayName: "Vendor", BaseType: "type/Text", SemanticType: "type/Company"},
		{ID: Products.Price, TableID: ProductsID, Name: "PRICE", DisplayName: "Price", BaseType: "type/Float"},
		{ID: Products.Rating, TableID: ProductsID, Name: "RATING", DisplayName: "Rating", BaseType: "type/Float", SemanticType: "type/Score"},
		{ID: Products.CreatedAt, TableID: ProductsID, Name: "CREATED_AT", DisplayName: "Created At", BaseType: "type/DateTime", SemanticType: "type/CreationTimestamp"},

		{ID: Orders.ID, TableID: OrdersID, Name: "ID", DisplayName: "ID", BaseType: "type/BigInteger", SemanticType: "type/PK"},
		{ID: Orders.UserID, TableID: OrdersID, Name: "USER_ID", DisplayName: "User ID", BaseType: "type/Integer", SemanticType: "type/FK", FKTargetField: fk(People.ID)},
		{ID: Orders.ProductID, TableID: OrdersID, Name: "PRODUCT_ID", DisplayName: "Product ID", BaseType: "type/Integer", SemanticType: "type/FK", FKTargetField: fk(Products.ID)},
		{ID: Orders.Subtotal, TableID: OrdersID, Name: "SUBTOTAL", DisplayName: "Subtotal", BaseType: "type/Float"},
		{ID: Orders.Tax, TableID: OrdersID, Name: "TAX", DisplayName: "Tax", BaseType: "type/Float"},
		{ID: Orders.Total, TableID: OrdersID, Name: "TOTAL", DisplayName: "Total", BaseType: "type/Float"},
		{ID: Orders.Discount, TableID: OrdersID, Name: "DISCOUNT", DisplayName: "Discount", BaseType: "type/Float", SemanticType: "type/Discount"},
		{ID: Orders.CreatedAt, TableID: OrdersID, Name: "CREATED_AT", DisplayName: "Created At", BaseType: "type/DateTime", SemanticType: "type/CreationTimestamp"},
		{ID: Orders.Quantity, TableID: OrdersID, Name: "QUANTITY", DisplayName: "Quantity", BaseType: "type/Integer", SemanticType: "type/Quantity"},

		{ID: People.ID, TableID: PeopleID, Name: "ID", DisplayName: "ID", BaseType: "type/BigInteger", SemanticType: "type/PK"},
		{ID: People.Address, TableID: PeopleID, Name: "ADDRESS", DisplayName: "Address", BaseType: "type/Text"},
		{ID: People.Email, TableID: PeopleID, Name: "EMAIL", DisplayName: "Email", BaseType: "type/Text", SemanticType: "type/Email"},
		{ID: People.Password, TableID: PeopleID, Name: "PASSWORD", DisplayName: "Password", BaseType: "type/Text"},
		{ID: People.Name, TableID: PeopleID, Name: "NAME", DisplayName: "Name", BaseType: "type/Text", SemanticType: "type/Name"},
		{ID: People.City, TableID: PeopleID, Name: "CITY", DisplayName: "City", BaseType: "type/Text", SemanticType: "type/City"},
		{ID: People.Longitude, TableID: PeopleID, Name: "LONGITUDE", DisplayName: "Longitude", BaseType: "type/Float", SemanticType: "type/Longitude"},
		{ID: People.State, TableID: PeopleID, Name: "STATE", DisplayName: "State", BaseType: "type/Text", SemanticType: "type/State"},
		{ID: People.Source, TableID: PeopleID, Name: "SOURCE", DisplayName: "Source", BaseType: "type/Text", SemanticType: "type/Source"},
		{ID: People.BirthDate, TableID: PeopleID, Name: "BIRTH_DATE", DisplayName: "Birth Date", BaseType: "type/Date"},
		{ID: People.Zip, TableID: PeopleID, Name: "ZIP", DisplayName: "Zip", BaseType: "type/Text", SemanticType: "type/ZipCode"},
		{ID: People.Latitude, TableID: PeopleID, Name: "LATITUDE", DisplayName: "Latitude", BaseType: "type/Float", SemanticType: "type/Latitude"},
		{ID: People.CreatedAt, TableID: PeopleID, Name: "CREATED_AT", DisplayName: "Created At", BaseType: "type/DateTime", SemanticType: "type/CreationTimestamp"},

		{ID: Reviews.ID, TableID: ReviewsID, Name: "ID", DisplayName: "ID", BaseType: "type/BigInteger", SemanticType: "type/PK"},
		{ID: Reviews.ProductID, TableID: ReviewsID, Name: "PRODUCT_ID", DisplayName: "Product ID", BaseType: "type/Integer", SemanticType: "type/FK", FKTargetField: fk(Products.ID)},
		{ID: Reviews.Reviewer, TableID: ReviewsID, Name: "REVIEWER", DisplayName: "Reviewer", BaseType: "type/Text"},
		{ID: Reviews.Rating, TableID: ReviewsID, Name: "RATING", DisplayName: "Rating", BaseType: "type/Integer", SemanticType: "type/Score"},
		{ID: Reviews.Body, TableID: ReviewsID, Name: "BODY", DisplayName: "Body", BaseType: "type/Text", SemanticType: "type/Description"},
		{ID: Reviews.CreatedAt, TableID: ReviewsID, Name: "CREATED_AT", DisplayName: "Created At", BaseType: "type/DateTime", SemanticType: "type/CreationTimestamp"},
	}
	return New(dbs, tables, fields)
}
