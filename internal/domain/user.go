package domain

type User struct {
	ID        int64
	FirstName *string
	LastName  *string
	Username  *string
	Email     *string
	Phone     *string
	Company   *string
}
