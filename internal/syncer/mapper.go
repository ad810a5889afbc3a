package syncer

// Mapping between the remote document image of a record and its local row.
// All functions here are pure: they copy domain fields, stamp the owner and
// remote identity, and leave LocalID zero for the cache to assign.
// Malformed documents never reach this layer; the remote adapter drops
// anything it cannot decode.

func TransactionFromDoc(doc TransactionDoc, ownerID string) Transaction {
	return Transaction{
		RemoteID:   doc.RemoteID,
		OwnerID:    ownerID,
		Synced:     true,
		Name:       doc.Name,
		Amount:     doc.Amount,
		Type:       doc.Type,
		CategoryID: doc.CategoryID,
		Date:       doc.Date,
		Note:       doc.Note,
	}
}

func DocFromTransaction(t Transaction) TransactionDoc {
	return TransactionDoc{
		RemoteID:   t.RemoteID,
		Name:       t.Name,
		Amount:     t.Amount,
		Type:       t.Type,
		CategoryID: t.CategoryID,
		Date:       t.Date,
		Note:       t.Note,
	}
}

func CategoryFromDoc(doc CategoryDoc, ownerID string) Category {
	return Category{
		RemoteID: doc.RemoteID,
		OwnerID:  ownerID,
		Synced:   true,
		Name:     doc.Name,
		Icon:     doc.Icon,
		Color:    doc.Color,
	}
}

func DocFromCategory(c Category) CategoryDoc {
	return CategoryDoc{
		RemoteID: c.RemoteID,
		Name:     c.Name,
		Icon:     c.Icon,
		Color:    c.Color,
	}
}

func LimitFromDoc(doc LimitDoc, ownerID string) BudgetLimit {
	return BudgetLimit{
		RemoteID:   doc.RemoteID,
		OwnerID:    ownerID,
		Synced:     true,
		CategoryID: doc.CategoryID,
		Amount:     doc.Amount,
		Period:     doc.Period,
	}
}

func DocFromLimit(l BudgetLimit) LimitDoc {
	return LimitDoc{
		RemoteID:   l.RemoteID,
		CategoryID: l.CategoryID,
		Amount:     l.Amount,
		Period:     l.Period,
	}
}
