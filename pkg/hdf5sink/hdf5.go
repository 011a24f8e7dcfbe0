package hdf5sink

import (
	"fmt"

	"github.com/jmbenlloch/go-hdf5"
)

const STRLEN = 40

// Table rows. Field names are the column names in the file.
type runInfoHDF5 struct {
	run_id     [STRLEN]byte
	run_number int32
	started_at [STRLEN]byte
}

type eventHDF5 struct {
	evt_number   int32
	trigger_time [STRLEN]byte
}

type channelMappingHDF5 struct {
	channel int32
	pad     int32
	column  int32
	row     int32
}

type featuresHDF5 struct {
	evt_number        int32
	channel           int32
	valid             uint32
	nsamples          int32
	ped_start         float64
	ped_start_std_dev float64
	ped_end           float64
	ped_end_std_dev   float64
	amp               float64
	t_amp             float64
	t1                float64
	t1_10             float64
	t1_50             float64
	t1_90             float64
	toa               float64
	charge            float64
	t2                float64
	t2_10             float64
	t2_50             float64
	t2_90             float64
	q_10              float64
	q_50              float64
	q_90              float64
	q_pm2ns           float64
	q_full            float64
}

type hitHDF5 struct {
	evt_number    int32
	pad_left      int32
	pad_right     int32
	channel_left  int32
	channel_right int32
	signal_left   float64
	signal_right  float64
	x             float64
	y             float64
	status        int32
}

func convertToHdf5String(s string) [STRLEN]byte {
	var byteArray [STRLEN]byte
	copy(byteArray[:], s)
	return byteArray
}

func openFile(fname string) (*hdf5.File, error) {
	f, err := hdf5.CreateFile(fname, hdf5.F_ACC_TRUNC)
	if err != nil {
		return nil, &OpError{Op: OpCreateFile, Object: fname, Err: err}
	}
	return f, nil
}

func createGroup(file *hdf5.File, groupName string) (*hdf5.Group, error) {
	g, err := file.CreateGroup(groupName)
	if err != nil {
		return nil, &OpError{Op: OpCreateGroup, Object: groupName, Err: err}
	}
	return g, nil
}

func datasetProperties(chunks []uint, compression int) (*hdf5.PropList, error) {
	plist, err := hdf5.NewPropList(hdf5.P_DATASET_CREATE)
	if err != nil {
		return nil, err
	}
	if err := plist.SetChunk(chunks); err != nil {
		plist.Close()
		return nil, err
	}
	if compression > 0 {
		if err := plist.SetDeflate(compression); err != nil {
			plist.Close()
			return nil, err
		}
	}
	return plist, nil
}

func createTable(group *hdf5.Group, name string, datatype interface{}, compression int) (*hdf5.Dataset, error) {
	dims := []uint{0}
	unlimitedDims := -1 // H5S_UNLIMITED is -1L
	maxDims := []uint{uint(unlimitedDims)}
	fileSpace, err := hdf5.CreateSimpleDataspace(dims, maxDims)
	if err != nil {
		return nil, &OpError{Op: OpCreateTable, Object: name, Err: err}
	}
	defer fileSpace.Close()

	plist, err := datasetProperties([]uint{32768}, compression)
	if err != nil {
		return nil, &OpError{Op: OpCreateTable, Object: name, Err: err}
	}
	defer plist.Close()

	dtype, err := hdf5.NewDatatypeFromValue(datatype)
	if err != nil {
		return nil, &OpError{Op: OpCreateTable, Object: name, Err: err}
	}

	dset, err := group.CreateDatasetWith(name, dtype, fileSpace, plist)
	if err != nil {
		return nil, &OpError{Op: OpCreateTable, Object: name, Err: err}
	}
	return dset, nil
}

// createWaveformArray holds one (nChannels, nSamples) float32 block per event.
func createWaveformArray(group *hdf5.Group, name string, nChannels int, nSamples int, compression int) (*hdf5.Dataset, error) {
	dims := []uint{0, uint(nChannels), uint(nSamples)}
	unlimitedDims := -1 // H5S_UNLIMITED is -1L
	maxDims := []uint{uint(unlimitedDims), uint(nChannels), uint(nSamples)}
	fileSpace, err := hdf5.CreateSimpleDataspace(dims, maxDims)
	if err != nil {
		return nil, &OpError{Op: OpCreateArray, Object: name, Err: err}
	}
	defer fileSpace.Close()

	plist, err := datasetProperties([]uint{1, uint(nChannels), uint(nSamples)}, compression)
	if err != nil {
		return nil, &OpError{Op: OpCreateArray, Object: name, Err: err}
	}
	defer plist.Close()

	dset, err := group.CreateDatasetWith(name, hdf5.T_NATIVE_FLOAT, fileSpace, plist)
	if err != nil {
		return nil, &OpError{Op: OpCreateArray, Object: name, Err: err}
	}
	return dset, nil
}

func writeEntryToTable[T any](dataset *hdf5.Dataset, data T) error {
	array := []T{data}
	return writeArrayToTable(dataset, &array)
}

// writeArrayToTable appends data at the end of a 1-D table.
func writeArrayToTable[T any](dataset *hdf5.Dataset, data *[]T) error {
	length := uint(len(*data))
	if length == 0 {
		return nil
	}
	dataspace, err := hdf5.CreateSimpleDataspace([]uint{length}, nil)
	if err != nil {
		return err
	}
	defer dataspace.Close()

	current := dataset.Space()
	dims, _, err := current.SimpleExtentDims()
	current.Close()
	if err != nil {
		return err
	}
	rows := dims[0]
	if err := dataset.Resize([]uint{rows + length}); err != nil {
		return err
	}
	filespace := dataset.Space()
	defer filespace.Close()

	if err := filespace.SelectHyperslab([]uint{rows}, nil, []uint{length}, nil); err != nil {
		return err
	}
	return dataset.WriteSubset(data, dataspace, filespace)
}

func writeWaveformBlock(dataset *hdf5.Dataset, data *[]float32, evtCounter int, nChannels int, nSamples int) error {
	newsize := []uint{uint(evtCounter) + 1, uint(nChannels), uint(nSamples)}
	if err := dataset.Resize(newsize); err != nil {
		return err
	}
	filespace := dataset.Space()
	defer filespace.Close()

	start := []uint{uint(evtCounter), 0, 0}
	count := []uint{1, uint(nChannels), uint(nSamples)}
	if err := filespace.SelectHyperslab(start, nil, count, nil); err != nil {
		return err
	}

	dataspace, err := hdf5.CreateSimpleDataspace(count, nil)
	if err != nil {
		return fmt.Errorf("creating memory space: %w", err)
	}
	defer dataspace.Close()

	return dataset.WriteSubset(data, dataspace, filespace)
}
