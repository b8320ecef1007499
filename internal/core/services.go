package core

type Services struct {
	Domain *DomainService
	Order  *OrderService
}
