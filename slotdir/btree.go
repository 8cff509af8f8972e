package slotdir

import (
	"github.com/bcltools/bcltools/model"

	"github.com/google/btree"
)

var _ SlotDir = (*BTree)(nil)

const defaultDegree = 32

// BTree implement the slot directory
type BTree struct {
	tree *btree.BTreeG[*Item]
}

// Item is one entry of the tree
type Item struct {
	slot Slot
	file *model.RecordFile
}

func lessItem(a, b *Item) bool {
	return a.slot.Less(b.slot)
}

func NewBTree(degree int) *BTree {
	if degree <= 0 {
		degree = defaultDegree
	}
	return &BTree{
		tree: btree.NewG[*Item](degree, lessItem),
	}
}

// Put stores file under slot and reports whether the slot was new.
func (bt *BTree) Put(slot Slot, file *model.RecordFile) bool {
	_, replaced := bt.tree.ReplaceOrInsert(&Item{slot: slot, file: file})
	return !replaced
}

func (bt *BTree) Get(slot Slot) *model.RecordFile {
	item, ok := bt.tree.Get(&Item{slot: slot})
	if !ok {
		return nil
	}
	return item.file
}

func (bt *BTree) Size() int {
	return bt.tree.Len()
}

func (bt *BTree) Iterator() Iterator {
	return bt.newBtreeIterator()
}

type btreeIterator struct {
	values []*Item
	curIdx int
}

func (bt *BTree) newBtreeIterator() *btreeIterator {
	iterator := &btreeIterator{
		values: make([]*Item, 0, bt.tree.Len()),
	}

	bt.tree.Ascend(func(item *Item) bool {
		iterator.values = append(iterator.values, item)
		return true
	})

	return iterator
}

func (bti *btreeIterator) Rewind() {
	bti.curIdx = 0
}

func (bti *btreeIterator) Next() {
	bti.curIdx++
}

func (bti *btreeIterator) Valid() bool {
	return bti.curIdx < len(bti.values)
}

func (bti *btreeIterator) Key() Slot {
	return bti.values[bti.curIdx].slot
}

func (bti *btreeIterator) Value() *model.RecordFile {
	return bti.values[bti.curIdx].file
}

func (bti *btreeIterator) Close() {
	bti.values = nil
}
