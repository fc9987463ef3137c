package state

var (
	stakeRecordPrefix = []byte("stake-record:")
	stakeIndexPrefix  = "staking/holder/"
)

func stakeIndexKey(holder [20]byte) []byte {
	return append([]byte(stakeIndexPrefix), holder[:]...)
}

// StakeRecordRaw returns the raw bytes of the record stored at addr. The
// layout is owned by the staking module; state only stores it verbatim.
func (j *Journal) StakeRecordRaw(addr [20]byte) ([]byte, bool, error) {
	data, err := j.get(hashedKey(stakeRecordPrefix, addr[:]))
	if err != nil {
		return nil, false, err
	}
	if len(data) == 0 {
		return nil, false, nil
	}
	return append([]byte(nil), data...), true, nil
}

// PutStakeRecordRaw stores a record and indexes its asset under the holder.
func (j *Journal) PutStakeRecordRaw(holder, asset, addr [20]byte, data []byte) error {
	if err := j.put(hashedKey(stakeRecordPrefix, addr[:]), data); err != nil {
		return err
	}
	return j.KVAppend(stakeIndexKey(holder), asset[:])
}

// DeleteStakeRecord removes a record and its holder index entry.
func (j *Journal) DeleteStakeRecord(holder, asset, addr [20]byte) error {
	if err := j.del(hashedKey(stakeRecordPrefix, addr[:])); err != nil {
		return err
	}
	return j.KVRemove(stakeIndexKey(holder), asset[:])
}

// StakedAssetsByHolder lists the assets for which holder has a live record.
func (j *Journal) StakedAssetsByHolder(holder [20]byte) ([][20]byte, error) {
	list, err := j.KVGetList(stakeIndexKey(holder))
	if err != nil {
		return nil, err
	}
	out := make([][20]byte, 0, len(list))
	for _, entry := range list {
		var addr [20]byte
		copy(addr[:], entry)
		out = append(out, addr)
	}
	return out, nil
}
